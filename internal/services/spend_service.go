package services

import (
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/period"
)

// spendService aggregates ledger spend. It is the only read path the
// rollover engine has into the transaction table.
type spendService struct {
	db *gorm.DB
}

// NewSpendService creates a new SpendAggregator backed by the ledger.
func NewSpendService(db *gorm.DB) SpendAggregator {
	return &spendService{db: db}
}

// SumExpenses returns the total expense amount for a category within the
// half-open window. Categories with no transactions sum to zero.
func (s *spendService) SumExpenses(familyID, categoryID uint, window period.Window) (int64, error) {
	var spent int64
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("family_id = ? AND category_id = ? AND type = ? AND date >= ? AND date < ?",
			familyID, categoryID, models.TransactionTypeExpense, window.Start, window.End).
		Scan(&spent).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return spent, nil
}
