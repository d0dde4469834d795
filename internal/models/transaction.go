package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction represents one ledger entry. Amounts are minor currency
// units (cents).
type Transaction struct {
	Base
	FamilyID    uint            `gorm:"not null;index" json:"family_id"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      int64           `gorm:"type:bigint;not null" json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	CreatedBy   uint            `json:"created_by"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
