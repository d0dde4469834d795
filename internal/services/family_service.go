package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
)

// familyService handles family and membership business logic.
type familyService struct {
	db *gorm.DB
}

// NewFamilyService creates a new FamilyServicer.
func NewFamilyService(db *gorm.DB) FamilyServicer {
	return &familyService{db: db}
}

// CreateFamily creates a family and enrolls the creator as its admin in
// the same transaction.
func (s *familyService) CreateFamily(name, currency string, creatorID uint) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "family name is required")
	}
	if currency == "" {
		currency = "USD"
	}

	family := &models.Family{
		Name:     name,
		Currency: strings.ToUpper(currency),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(family).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		member := models.FamilyMember{
			FamilyID: family.ID,
			UserID:   creatorID,
			Role:     models.RoleAdmin,
		}
		if err := tx.Create(&member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetFamilyByID(family.ID)
}

// GetUserFamilies returns every family the user belongs to.
func (s *familyService) GetUserFamilies(userID uint) ([]models.Family, error) {
	var families []models.Family
	err := s.db.
		Joins("JOIN family_members ON family_members.family_id = families.id").
		Where("family_members.user_id = ? AND family_members.deleted_at IS NULL", userID).
		Find(&families).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return families, nil
}

// GetFamilyByID fetches a family with its members.
func (s *familyService) GetFamilyByID(familyID uint) (*models.Family, error) {
	var family models.Family
	err := s.db.Preload("Members.User").First(&family, familyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFamilyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &family, nil
}

// AddMember enrolls a user into a family with the given role.
func (s *familyService) AddMember(familyID, userID uint, role models.FamilyRole) (*models.FamilyMember, error) {
	if !role.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown family role")
	}

	if _, err := s.GetFamilyByID(familyID); err != nil {
		return nil, err
	}

	var userCount int64
	if err := s.db.Model(&models.User{}).Where("id = ? AND is_active = ?", userID, true).Count(&userCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if userCount == 0 {
		return nil, apperrors.ErrUserNotFound
	}

	member := &models.FamilyMember{
		FamilyID: familyID,
		UserID:   userID,
		Role:     role,
	}
	if err := s.db.Create(member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateMember
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return member, nil
}

// GetMemberRole resolves the user's role within a family. Satisfies
// middleware.RoleLookup.
func (s *familyService) GetMemberRole(familyID, userID uint) (models.FamilyRole, error) {
	var member models.FamilyMember
	err := s.db.Where("family_id = ? AND user_id = ?", familyID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrNotFamilyMember
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return member.Role, nil
}
