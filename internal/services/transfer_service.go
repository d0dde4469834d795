package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/logger"
	"famledger/internal/models"
)

// transferService moves allowance between two categories of one budget.
// The move debits and credits rollover amounts; spend already attributed
// to the source category stays where it is.
type transferService struct {
	db    *gorm.DB
	spend SpendAggregator
	now   func() time.Time
}

// NewTransferService creates a new TransferServicer.
func NewTransferService(db *gorm.DB, spend SpendAggregator) TransferServicer {
	return &transferService{db: db, spend: spend, now: time.Now}
}

// Transfer moves amount from one category's allowance to another within
// the same budget. Availability is the source's effective limit minus its
// live spend for the budget window, so unspent base allowance can back a
// transfer even when no rollover is banked. Both rollover updates happen
// in one transaction, and the debit carries a balance guard in its WHERE
// clause so two concurrent transfers cannot both draw on the same
// allowance.
func (s *transferService) Transfer(familyID, budgetID, fromCategoryID, toCategoryID uint, amount int64, reason string) (*TransferResult, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transfer amount must be greater than zero")
	}
	if fromCategoryID == toCategoryID {
		return nil, apperrors.ErrSameCategoryTransfer
	}

	var result *TransferResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var budget models.Budget
		err := tx.Where("id = ? AND family_id = ?", budgetID, familyID).First(&budget).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrBudgetNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		from, err := s.findLine(tx, budgetID, fromCategoryID)
		if err != nil {
			return err
		}
		if _, err := s.findLine(tx, budgetID, toCategoryID); err != nil {
			return err
		}

		spent, err := s.spend.SumExpenses(familyID, fromCategoryID, budget.Window())
		if err != nil {
			return err
		}

		available := from.EffectiveLimit() - spent
		if available < amount {
			return apperrors.WithMessage(apperrors.ErrInsufficientFunds,
				fmt.Sprintf("category has %d available, transfer of %d requested", available, amount))
		}

		// If a concurrent transfer drained the source since we read it,
		// its rollover will have dropped below this floor and the guarded
		// update matches no rows.
		minRollover := from.RolloverAmount - (available - amount)
		debit := tx.Model(&models.BudgetCategory{}).
			Where("budget_id = ? AND category_id = ? AND rollover_amount >= ?", budgetID, fromCategoryID, minRollover).
			Update("rollover_amount", gorm.Expr("rollover_amount - ?", amount))
		if debit.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, debit.Error)
		}
		if debit.RowsAffected == 0 {
			return apperrors.WithMessage(apperrors.ErrInsufficientFunds,
				"category balance changed concurrently, transfer aborted")
		}

		credit := tx.Model(&models.BudgetCategory{}).
			Where("budget_id = ? AND category_id = ?", budgetID, toCategoryID).
			Update("rollover_amount", gorm.Expr("rollover_amount + ?", amount))
		if credit.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, credit.Error)
		}

		fromAfter, err := s.findLine(tx, budgetID, fromCategoryID)
		if err != nil {
			return err
		}
		toAfter, err := s.findLine(tx, budgetID, toCategoryID)
		if err != nil {
			return err
		}

		result = &TransferResult{
			BudgetID:       budgetID,
			FromCategoryID: fromCategoryID,
			ToCategoryID:   toCategoryID,
			Amount:         amount,
			Reason:         reason,
			FromRollover:   fromAfter.RolloverAmount,
			ToRollover:     toAfter.RolloverAmount,
			TransferredAt:  s.now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infof("transferred %d from category %d to category %d in budget %d",
		amount, fromCategoryID, toCategoryID, budgetID)
	return result, nil
}

// findLine fetches a budget category line within the transaction.
func (s *transferService) findLine(tx *gorm.DB, budgetID, categoryID uint) (*models.BudgetCategory, error) {
	var line models.BudgetCategory
	err := tx.Where("budget_id = ? AND category_id = ?", budgetID, categoryID).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &line, nil
}
