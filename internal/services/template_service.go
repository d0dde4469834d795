package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/period"
)

// templateService handles budget template business logic.
type templateService struct {
	db *gorm.DB
}

// NewTemplateService creates a new TemplateServicer.
func NewTemplateService(db *gorm.DB) TemplateServicer {
	return &templateService{db: db}
}

// CreateTemplate creates a new budget template with its category lines.
func (s *templateService) CreateTemplate(
	familyID uint,
	name string,
	unit period.Unit,
	alertThreshold *int,
	autoGenerate bool,
	categories []TemplateCategoryInput,
) (*models.Template, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "template name is required")
	}
	if !unit.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown period unit")
	}

	threshold := 80
	if alertThreshold != nil {
		threshold = *alertThreshold
	}
	if threshold < 0 || threshold > 100 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 0 and 100")
	}

	if err := s.validateCategories(familyID, categories); err != nil {
		return nil, err
	}

	// Name must be unique among the family's active templates.
	var count int64
	if err := s.db.Model(&models.Template{}).
		Where("family_id = ? AND name = ? AND is_active = ?", familyID, name, true).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateTemplate
	}

	template := &models.Template{
		FamilyID:       familyID,
		Name:           name,
		TotalBudget:    sumLimits(categories),
		PeriodUnit:     unit,
		AlertThreshold: threshold,
		AutoGenerate:   autoGenerate,
		IsActive:       true,
	}
	for _, in := range categories {
		template.Categories = append(template.Categories, models.TemplateCategory{
			CategoryID:     in.CategoryID,
			MonthlyLimit:   in.MonthlyLimit,
			EnableRollover: in.EnableRollover,
		})
	}

	if err := s.db.Create(template).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetTemplateByID(familyID, template.ID)
}

// GetFamilyTemplates returns a paginated list of the family's active templates.
func (s *templateService) GetFamilyTemplates(
	familyID uint,
	page pagination.PageRequest,
	autoGenerate *bool,
) (*pagination.PageResponse[models.Template], error) {
	page.Defaults()

	base := s.db.Model(&models.Template{}).Where("family_id = ? AND is_active = ?", familyID, true)
	if autoGenerate != nil {
		base = base.Where("auto_generate = ?", *autoGenerate)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var templates []models.Template
	if err := base.Preload("Categories.Category").Scopes(pagination.Paginate(page)).Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(templates, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTemplateByID returns an active template with its categories.
func (s *templateService) GetTemplateByID(familyID, templateID uint) (*models.Template, error) {
	var template models.Template
	err := s.db.Preload("Categories.Category").
		Where("id = ? AND family_id = ? AND is_active = ?", templateID, familyID, true).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &template, nil
}

// UpdateTemplate updates a template. When categories are given the whole
// category set is replaced rather than diffed; budgets generated earlier
// keep their own copies and are not affected.
func (s *templateService) UpdateTemplate(
	familyID, templateID uint,
	name string,
	unit *period.Unit,
	alertThreshold *int,
	autoGenerate *bool,
	categories []TemplateCategoryInput,
) (*models.Template, error) {
	template, err := s.GetTemplateByID(familyID, templateID)
	if err != nil {
		return nil, err
	}

	if alertThreshold != nil && (*alertThreshold < 0 || *alertThreshold > 100) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 0 and 100")
	}
	if unit != nil && !unit.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown period unit")
	}

	if name != "" && name != template.Name {
		var count int64
		if err := s.db.Model(&models.Template{}).
			Where("family_id = ? AND name = ? AND is_active = ? AND id <> ?", familyID, name, true, templateID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return nil, apperrors.ErrDuplicateTemplate
		}
	}

	if categories != nil {
		if err := s.validateCategories(familyID, categories); err != nil {
			return nil, err
		}
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if unit != nil {
		updates["period_unit"] = *unit
	}
	if alertThreshold != nil {
		updates["alert_threshold"] = *alertThreshold
	}
	if autoGenerate != nil {
		updates["auto_generate"] = *autoGenerate
	}
	if categories != nil {
		updates["total_budget"] = sumLimits(categories)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(template).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if categories != nil {
			// Wholesale replace: drop the old lines, insert the new set.
			if err := tx.Unscoped().Where("template_id = ?", templateID).
				Delete(&models.TemplateCategory{}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			for _, in := range categories {
				line := models.TemplateCategory{
					TemplateID:     templateID,
					CategoryID:     in.CategoryID,
					MonthlyLimit:   in.MonthlyLimit,
					EnableRollover: in.EnableRollover,
				}
				if err := tx.Create(&line).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTemplateByID(familyID, templateID)
}

// DeleteTemplate soft-deletes a template by clearing its active flag.
// Generated budgets are untouched.
func (s *templateService) DeleteTemplate(familyID, templateID uint) error {
	template, err := s.GetTemplateByID(familyID, templateID)
	if err != nil {
		return err
	}

	if err := s.db.Model(template).Update("is_active", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// validateCategories checks a template's category lines: at least one,
// positive limits, no duplicates, and every referenced category must
// exist in the family.
func (s *templateService) validateCategories(familyID uint, categories []TemplateCategoryInput) error {
	if len(categories) == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "template requires at least one category")
	}

	seen := make(map[uint]bool, len(categories))
	for _, in := range categories {
		if in.MonthlyLimit <= 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "category limit must be greater than zero")
		}
		if seen[in.CategoryID] {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "duplicate category in template")
		}
		seen[in.CategoryID] = true

		var count int64
		if err := s.db.Model(&models.Category{}).
			Where("id = ? AND family_id = ?", in.CategoryID, familyID).
			Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return apperrors.ErrCategoryNotFound
		}
	}
	return nil
}

// sumLimits recomputes a template's total budget from its lines.
func sumLimits(categories []TemplateCategoryInput) int64 {
	var total int64
	for _, in := range categories {
		total += in.MonthlyLimit
	}
	return total
}
