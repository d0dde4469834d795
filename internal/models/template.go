package models

import (
	"time"

	"famledger/internal/period"
)

// Template is a reusable budget blueprint. It is never tied to a
// concrete period; the generator materializes it into dated Budgets.
type Template struct {
	Base
	FamilyID       uint        `gorm:"not null;index" json:"family_id"`
	Name           string      `gorm:"not null" json:"name"`
	TotalBudget    int64       `gorm:"type:bigint;not null" json:"total_budget"`
	PeriodUnit     period.Unit `gorm:"not null" json:"period_unit"`
	AlertThreshold int         `gorm:"not null;default:80" json:"alert_threshold"`
	AutoGenerate   bool        `gorm:"default:false" json:"auto_generate"`
	LastGenerated  *time.Time  `json:"last_generated,omitempty"`
	IsActive       bool        `gorm:"default:true" json:"is_active"`

	Categories []TemplateCategory `gorm:"foreignKey:TemplateID" json:"categories,omitempty"`
}

// TemplateCategory is one category line of a template. MonthlyLimit is
// the per-period allowance in minor currency units.
type TemplateCategory struct {
	Base
	TemplateID     uint  `gorm:"not null;index" json:"template_id"`
	CategoryID     uint  `gorm:"not null" json:"category_id"`
	MonthlyLimit   int64 `gorm:"type:bigint;not null" json:"monthly_limit"`
	EnableRollover bool  `gorm:"default:false" json:"enable_rollover"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
