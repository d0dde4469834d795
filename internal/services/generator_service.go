package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/logger"
	"famledger/internal/models"
	"famledger/internal/period"
)

// generatorService materializes templates into dated budgets. Rollover
// is computed once, at generation, from the immediately preceding budget
// of the same template; the persisted rollover amount is never negative.
type generatorService struct {
	db    *gorm.DB
	spend SpendAggregator
	now   func() time.Time
}

// NewGeneratorService creates a new GeneratorServicer.
func NewGeneratorService(db *gorm.DB, spend SpendAggregator) GeneratorServicer {
	return &generatorService{
		db:    db,
		spend: spend,
		now:   time.Now,
	}
}

// Generate materializes one budget from a template for the period
// containing anchor (or now). Generation is idempotent per template and
// period: a second call for the same window returns a conflict, backed
// by the unique index on (family, template, start date) so concurrent
// calls cannot both succeed.
func (s *generatorService) Generate(familyID, templateID uint, anchor *time.Time, createdBy uint) (*models.Budget, error) {
	template, err := s.loadTemplate(familyID, templateID)
	if err != nil {
		return nil, err
	}

	ref := s.now()
	if anchor != nil {
		ref = *anchor
	}
	window := period.Resolve(template.PeriodUnit, ref)

	existing, err := s.findBudget(familyID, templateID, window)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, s.periodConflict(template, window)
	}

	rollovers, err := s.computeRollovers(template, window)
	if err != nil {
		return nil, err
	}

	budget := &models.Budget{
		FamilyID:       familyID,
		TemplateID:     &template.ID,
		Name:           template.Name,
		TotalBudget:    template.TotalBudget,
		PeriodUnit:     template.PeriodUnit,
		StartDate:      window.Start,
		EndDate:        window.End,
		AlertThreshold: template.AlertThreshold,
		CreatedBy:      createdBy,
	}
	for _, line := range template.Categories {
		budget.Categories = append(budget.Categories, models.BudgetCategory{
			CategoryID:     line.CategoryID,
			MonthlyLimit:   line.MonthlyLimit,
			EnableRollover: line.EnableRollover,
			RolloverAmount: rollovers[line.CategoryID],
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(budget).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return s.periodConflict(template, window)
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		generatedAt := s.now()
		if err := tx.Model(&models.Template{}).Where("id = ?", template.ID).
			Update("last_generated", &generatedAt).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infof("generated budget %d from template %d for period %s to %s",
		budget.ID, template.ID, window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))

	var created models.Budget
	if err := s.db.Preload("Categories.Category").First(&created, budget.ID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &created, nil
}

// PreviewRollover projects what each category of a budget would carry
// into the next period if the period closed against current spend.
// Nothing is persisted.
func (s *generatorService) PreviewRollover(familyID, budgetID uint) ([]CategoryRolloverPreview, error) {
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

	previews := make([]CategoryRolloverPreview, 0, len(budget.Categories))
	for _, line := range budget.Categories {
		spent, err := s.spend.SumExpenses(familyID, line.CategoryID, budget.Window())
		if err != nil {
			return nil, err
		}
		previews = append(previews, CategoryRolloverPreview{
			CategoryID:     line.CategoryID,
			CategoryName:   line.Category.Name,
			MonthlyLimit:   line.MonthlyLimit,
			RolloverAmount: line.RolloverAmount,
			Spent:          spent,
			Projected:      ComputeRollover(line.MonthlyLimit, line.RolloverAmount, spent, line.EnableRollover),
		})
	}
	return previews, nil
}

// FindMissing lists the family's auto-generating templates that have no
// budget materialized for the period containing ref.
func (s *generatorService) FindMissing(familyID uint, ref time.Time) ([]MissingTemplate, error) {
	var templates []models.Template
	err := s.db.Where("family_id = ? AND is_active = ? AND auto_generate = ?", familyID, true, true).
		Order("name ASC").Find(&templates).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	missing := make([]MissingTemplate, 0)
	for _, template := range templates {
		window := period.Resolve(template.PeriodUnit, ref)

		existing, err := s.findBudget(familyID, template.ID, window)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		missing = append(missing, MissingTemplate{
			TemplateID:   template.ID,
			TemplateName: template.Name,
			TotalBudget:  template.TotalBudget,
			PeriodUnit:   template.PeriodUnit,
			PeriodStart:  window.Start,
			PeriodEnd:    window.End,
		})
	}
	return missing, nil
}

// GenerateMissing materializes a budget for each of the family's missing
// templates at ref. Each template is generated independently: one
// failure never aborts the rest, and templates that gained a budget
// between detection and generation count as skipped.
func (s *generatorService) GenerateMissing(familyID uint, ref time.Time, createdBy uint) (*GenerationSummary, error) {
	missing, err := s.FindMissing(familyID, ref)
	if err != nil {
		return nil, err
	}

	summary := &GenerationSummary{Outcomes: make([]GenerationOutcome, 0, len(missing))}
	for _, m := range missing {
		outcome := GenerationOutcome{TemplateID: m.TemplateID, TemplateName: m.TemplateName}

		budget, err := s.Generate(familyID, m.TemplateID, &ref, createdBy)
		switch {
		case err == nil:
			outcome.Status = GenerationGenerated
			outcome.BudgetID = &budget.ID
			summary.Generated++
		case apperrors.Is(err, apperrors.ErrBudgetPeriodConflict):
			outcome.Status = GenerationSkipped
			summary.Skipped++
		default:
			outcome.Status = GenerationErrored
			outcome.Error = err.Error()
			summary.Errored++
			logger.Get().Errorw("failed to generate budget from template",
				"template_id", m.TemplateID, "error", err)
		}

		summary.Outcomes = append(summary.Outcomes, outcome)
	}
	return summary, nil
}

// Sweep runs missing-budget generation across every family with active
// auto-generating templates. Used by the scheduled sweep command.
func (s *generatorService) Sweep(ref time.Time) (*GenerationSummary, error) {
	var familyIDs []uint
	err := s.db.Model(&models.Template{}).
		Where("is_active = ? AND auto_generate = ?", true, true).
		Distinct("family_id").
		Order("family_id ASC").
		Pluck("family_id", &familyIDs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := &GenerationSummary{Outcomes: make([]GenerationOutcome, 0)}
	for _, familyID := range familyIDs {
		summary, err := s.GenerateMissing(familyID, ref, 0)
		if err != nil {
			logger.Get().Errorw("sweep failed for family", "family_id", familyID, "error", err)
			continue
		}
		total.Generated += summary.Generated
		total.Skipped += summary.Skipped
		total.Errored += summary.Errored
		total.Outcomes = append(total.Outcomes, summary.Outcomes...)
	}

	logger.Get().Infof("sweep finished: %d generated, %d skipped, %d errored",
		total.Generated, total.Skipped, total.Errored)
	return total, nil
}

// loadTemplate fetches an active template with categories and validates
// it is generatable.
func (s *generatorService) loadTemplate(familyID, templateID uint) (*models.Template, error) {
	var template models.Template
	err := s.db.Preload("Categories").
		Where("id = ? AND family_id = ? AND is_active = ?", templateID, familyID, true).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(template.Categories) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "template has no categories to generate from")
	}
	return &template, nil
}

// findBudget returns the template's budget whose start date falls inside
// the window, or nil.
func (s *generatorService) findBudget(familyID, templateID uint, window period.Window) (*models.Budget, error) {
	var budget models.Budget
	err := s.db.Where("family_id = ? AND template_id = ? AND start_date >= ? AND start_date < ?",
		familyID, templateID, window.Start, window.End).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// computeRollovers derives each category's opening rollover from the
// template's latest budget before the new window. With no prior budget
// every category starts at zero.
func (s *generatorService) computeRollovers(template *models.Template, window period.Window) (map[uint]int64, error) {
	rollovers := make(map[uint]int64, len(template.Categories))
	for _, line := range template.Categories {
		rollovers[line.CategoryID] = 0
	}

	var previous models.Budget
	err := s.db.Preload("Categories").
		Where("family_id = ? AND template_id = ? AND start_date < ?",
			template.FamilyID, template.ID, window.Start).
		Order("start_date DESC").
		First(&previous).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rollovers, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, line := range previous.Categories {
		if _, stillPresent := rollovers[line.CategoryID]; !stillPresent {
			// Category dropped from the template since the last period;
			// its leftover allowance does not follow.
			continue
		}

		spent, err := s.spend.SumExpenses(template.FamilyID, line.CategoryID, previous.Window())
		if err != nil {
			return nil, err
		}

		result := ComputeRollover(line.MonthlyLimit, line.RolloverAmount, spent, line.EnableRollover)
		rollovers[line.CategoryID] = result.Amount
		if result.Deficit > 0 {
			logger.Get().Warnw("category overspent, deficit not carried forward",
				"category_id", line.CategoryID, "deficit", result.Deficit, "budget_id", previous.ID)
		}
	}
	return rollovers, nil
}

// periodConflict builds the conflict error for an already-covered period.
func (s *generatorService) periodConflict(template *models.Template, window period.Window) error {
	return apperrors.WithMessage(apperrors.ErrBudgetPeriodConflict,
		fmt.Sprintf("budget for template %q already exists for period starting %s",
			template.Name, window.Start.Format("2006-01-02")))
}
