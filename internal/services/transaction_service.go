package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
)

// transactionService handles ledger entries.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// CreateTransaction records a ledger entry. The transaction type must
// match the category's type.
func (s *transactionService) CreateTransaction(
	familyID, categoryID uint,
	transactionType models.TransactionType,
	amount int64,
	description string,
	date time.Time,
	createdBy uint,
) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if transactionType != models.TransactionTypeIncome && transactionType != models.TransactionTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction type must be income or expense")
	}

	var category models.Category
	err := s.db.Where("id = ? AND family_id = ?", categoryID, familyID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if string(category.Type) != string(transactionType) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction type does not match category type")
	}

	if date.IsZero() {
		date = time.Now()
	}

	txn := &models.Transaction{
		FamilyID:    familyID,
		CategoryID:  categoryID,
		Type:        transactionType,
		Amount:      amount,
		Description: description,
		Date:        date,
		CreatedBy:   createdBy,
	}
	if err := s.db.Create(txn).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetTransactionByID(familyID, txn.ID)
}

// GetFamilyTransactions returns a filtered, paginated list of ledger
// entries, newest first.
func (s *transactionService) GetFamilyTransactions(
	familyID uint,
	page pagination.PageRequest,
	filter TransactionFilter,
) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("family_id = ?", familyID)
	if filter.FromDate != nil {
		base = base.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("date < ?", *filter.ToDate)
	}
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		base = base.Where("category_id = ?", *filter.CategoryID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txns []models.Transaction
	if err := base.Preload("Category").Order("date DESC, id DESC").
		Scopes(pagination.Paginate(page)).Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(txns, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionByID fetches one ledger entry scoped to a family.
func (s *transactionService) GetTransactionByID(familyID, transactionID uint) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.Preload("Category").
		Where("id = ? AND family_id = ?", transactionID, familyID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &txn, nil
}

// DeleteTransaction soft-deletes a ledger entry.
func (s *transactionService) DeleteTransaction(familyID, transactionID uint) error {
	txn, err := s.GetTransactionByID(familyID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(txn).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
