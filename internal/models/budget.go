package models

import (
	"time"

	"famledger/internal/period"
)

// Budget is one materialized period instance, either generated from a
// template or hand-created (TemplateID nil). StartDate/EndDate form a
// half-open window [start, end). The unique index on (family, template,
// start date) backs the one-budget-per-template-per-period guarantee:
// two concurrent generations race to insert and the loser gets a
// duplicate-key error translated into a period conflict.
type Budget struct {
	Base
	FamilyID       uint        `gorm:"not null;index;uniqueIndex:uq_budgets_template_period" json:"family_id"`
	TemplateID     *uint       `gorm:"uniqueIndex:uq_budgets_template_period" json:"template_id,omitempty"`
	Name           string      `gorm:"not null" json:"name"`
	TotalBudget    int64       `gorm:"type:bigint;not null" json:"total_budget"`
	PeriodUnit     period.Unit `gorm:"not null" json:"period_unit"`
	StartDate      time.Time   `gorm:"not null;uniqueIndex:uq_budgets_template_period" json:"start_date"`
	EndDate        time.Time   `gorm:"not null" json:"end_date"`
	AlertThreshold int         `gorm:"not null;default:80" json:"alert_threshold"`
	CreatedBy      uint        `json:"created_by"`

	Categories []BudgetCategory `gorm:"foreignKey:BudgetID" json:"categories,omitempty"`
}

// Window returns the budget's period as a half-open window.
func (b *Budget) Window() period.Window {
	return period.Window{Start: b.StartDate, End: b.EndDate}
}

// BudgetCategory is one category line of a materialized budget.
// MonthlyLimit is copied from the template at generation time and stays
// independent afterwards. RolloverAmount is the only field mutated after
// creation, by rollover computation and transfers.
type BudgetCategory struct {
	Base
	BudgetID       uint  `gorm:"not null;index;uniqueIndex:uq_budget_categories_category" json:"budget_id"`
	CategoryID     uint  `gorm:"not null;uniqueIndex:uq_budget_categories_category" json:"category_id"`
	MonthlyLimit   int64 `gorm:"type:bigint;not null" json:"monthly_limit"`
	EnableRollover bool  `gorm:"default:false" json:"enable_rollover"`
	RolloverAmount int64 `gorm:"type:bigint;not null;default:0" json:"rollover_amount"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// EffectiveLimit is the spendable ceiling for the category's period.
func (c *BudgetCategory) EffectiveLimit() int64 {
	return c.MonthlyLimit + c.RolloverAmount
}
