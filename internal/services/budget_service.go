package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/period"
)

// budgetService reads and edits materialized budgets. Generation from
// templates lives in the generator service; this service covers
// hand-created budgets and the derived status view.
type budgetService struct {
	db    *gorm.DB
	spend SpendAggregator
	now   func() time.Time
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, spend SpendAggregator) BudgetServicer {
	return &budgetService{db: db, spend: spend, now: time.Now}
}

// CreateBudget creates a one-off budget not backed by a template. It
// starts with zero rollover everywhere; rollover chains only exist
// between template-generated budgets.
func (s *budgetService) CreateBudget(
	familyID uint,
	name string,
	unit period.Unit,
	anchor *time.Time,
	alertThreshold *int,
	categories []BudgetCategoryInput,
	createdBy uint,
) (*models.Budget, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name is required")
	}
	if !unit.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown period unit")
	}
	if len(categories) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget requires at least one category")
	}

	threshold := 80
	if alertThreshold != nil {
		threshold = *alertThreshold
	}
	if threshold < 0 || threshold > 100 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 0 and 100")
	}

	seen := make(map[uint]bool, len(categories))
	var total int64
	for _, in := range categories {
		if in.MonthlyLimit <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category limit must be greater than zero")
		}
		if seen[in.CategoryID] {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "duplicate category in budget")
		}
		seen[in.CategoryID] = true
		total += in.MonthlyLimit

		var count int64
		if err := s.db.Model(&models.Category{}).
			Where("id = ? AND family_id = ?", in.CategoryID, familyID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
	}

	ref := s.now()
	if anchor != nil {
		ref = *anchor
	}
	window := period.Resolve(unit, ref)

	budget := &models.Budget{
		FamilyID:       familyID,
		Name:           name,
		TotalBudget:    total,
		PeriodUnit:     unit,
		StartDate:      window.Start,
		EndDate:        window.End,
		AlertThreshold: threshold,
		CreatedBy:      createdBy,
	}
	for _, in := range categories {
		budget.Categories = append(budget.Categories, models.BudgetCategory{
			CategoryID:     in.CategoryID,
			MonthlyLimit:   in.MonthlyLimit,
			EnableRollover: in.EnableRollover,
		})
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetBudgetByID(familyID, budget.ID)
}

// GetFamilyBudgets returns a paginated list of the family's budgets,
// newest period first.
func (s *budgetService) GetFamilyBudgets(
	familyID uint,
	page pagination.PageRequest,
	unit *period.Unit,
) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("family_id = ?", familyID)
	if unit != nil {
		base = base.Where("period_unit = ?", *unit)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Categories.Category").Order("start_date DESC, id DESC").
		Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID fetches a budget with its category lines.
func (s *budgetService) GetBudgetByID(familyID, budgetID uint) (*models.Budget, error) {
	var budget models.Budget
	err := s.db.Preload("Categories.Category").
		Where("id = ? AND family_id = ?", budgetID, familyID).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// GetBudgetStatus derives the live spend view of a budget. Status is
// computed on read, never stored, so it cannot drift from the ledger.
func (s *budgetService) GetBudgetStatus(familyID, budgetID uint) (*BudgetStatus, error) {
	budget, err := s.GetBudgetByID(familyID, budgetID)
	if err != nil {
		return nil, err
	}

	status := &BudgetStatus{
		BudgetID:       budget.ID,
		Name:           budget.Name,
		PeriodUnit:     budget.PeriodUnit,
		StartDate:      budget.StartDate,
		EndDate:        budget.EndDate,
		TotalBudget:    budget.TotalBudget,
		AlertThreshold: budget.AlertThreshold,
		Categories:     make([]CategoryStatus, 0, len(budget.Categories)),
	}

	for _, line := range budget.Categories {
		spent, err := s.spend.SumExpenses(familyID, line.CategoryID, budget.Window())
		if err != nil {
			return nil, err
		}

		effective := line.EffectiveLimit()
		cs := CategoryStatus{
			CategoryID:     line.CategoryID,
			CategoryName:   line.Category.Name,
			MonthlyLimit:   line.MonthlyLimit,
			RolloverAmount: line.RolloverAmount,
			EffectiveLimit: effective,
			Spent:          spent,
			Remaining:      effective - spent,
			OverBudget:     spent > effective,
		}
		if effective > 0 {
			cs.PercentUsed = float64(spent) / float64(effective) * 100
			cs.NearLimit = !cs.OverBudget && cs.PercentUsed >= float64(budget.AlertThreshold)
		} else if spent > 0 {
			cs.PercentUsed = 100
			cs.OverBudget = true
		}

		status.TotalSpent += spent
		status.Categories = append(status.Categories, cs)
	}

	return status, nil
}

// UpdateBudget edits a budget's name, threshold, or category lines.
// Replacing categories resets every rollover amount to zero: the edited
// lines no longer correspond to the carry that was computed for them, so
// keeping it would leave stale money on the budget.
func (s *budgetService) UpdateBudget(
	familyID, budgetID uint,
	name string,
	alertThreshold *int,
	categories []BudgetCategoryInput,
) (*models.Budget, error) {
	if _, err := s.GetBudgetByID(familyID, budgetID); err != nil {
		return nil, err
	}

	if alertThreshold != nil && (*alertThreshold < 0 || *alertThreshold > 100) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 0 and 100")
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if alertThreshold != nil {
		updates["alert_threshold"] = *alertThreshold
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if categories != nil {
			if len(categories) == 0 {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "budget requires at least one category")
			}

			seen := make(map[uint]bool, len(categories))
			var total int64
			for _, in := range categories {
				if in.MonthlyLimit <= 0 {
					return apperrors.WithMessage(apperrors.ErrInvalidInput, "category limit must be greater than zero")
				}
				if seen[in.CategoryID] {
					return apperrors.WithMessage(apperrors.ErrInvalidInput, "duplicate category in budget")
				}
				seen[in.CategoryID] = true
				total += in.MonthlyLimit

				var count int64
				if err := tx.Model(&models.Category{}).
					Where("id = ? AND family_id = ?", in.CategoryID, familyID).
					Count(&count).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				if count == 0 {
					return apperrors.ErrCategoryNotFound
				}
			}

			if err := tx.Unscoped().Where("budget_id = ?", budgetID).
				Delete(&models.BudgetCategory{}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			for _, in := range categories {
				line := models.BudgetCategory{
					BudgetID:       budgetID,
					CategoryID:     in.CategoryID,
					MonthlyLimit:   in.MonthlyLimit,
					EnableRollover: in.EnableRollover,
				}
				if err := tx.Create(&line).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			}
			updates["total_budget"] = total
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.Budget{}).Where("id = ?", budgetID).
				Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetBudgetByID(familyID, budgetID)
}

// DeleteBudget soft-deletes a budget and its category lines.
func (s *budgetService) DeleteBudget(familyID, budgetID uint) error {
	budget, err := s.GetBudgetByID(familyID, budgetID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("budget_id = ?", budgetID).
			Delete(&models.BudgetCategory{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}
