package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"famledger/internal/models"
	"famledger/internal/period"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestFamily creates a family with the given user enrolled as admin.
func CreateTestFamily(t *testing.T, db *gorm.DB, adminID uint) *models.Family {
	t.Helper()

	family := &models.Family{
		Name:     fmt.Sprintf("Test Family %d", nextID()),
		Currency: "USD",
	}
	if err := db.Create(family).Error; err != nil {
		t.Fatalf("failed to create test family: %v", err)
	}

	member := &models.FamilyMember{
		FamilyID: family.ID,
		UserID:   adminID,
		Role:     models.RoleAdmin,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to enroll test family admin: %v", err)
	}
	return family
}

// CreateTestMember enrolls a user into a family with the given role.
func CreateTestMember(t *testing.T, db *gorm.DB, familyID, userID uint, role models.FamilyRole) *models.FamilyMember {
	t.Helper()

	member := &models.FamilyMember{
		FamilyID: familyID,
		UserID:   userID,
		Role:     role,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test family member: %v", err)
	}
	return member
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, familyID uint, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		FamilyID: familyID,
		Name:     fmt.Sprintf("Test Category %d", nextID()),
		Type:     categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestExpense records an expense transaction on the given date.
func CreateTestExpense(t *testing.T, db *gorm.DB, familyID, categoryID uint, amount int64, date time.Time) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		FamilyID:   familyID,
		CategoryID: categoryID,
		Type:       models.TransactionTypeExpense,
		Amount:     amount,
		Date:       date,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return txn
}

// TemplateLine describes one category line when building a test template.
type TemplateLine struct {
	CategoryID     uint
	MonthlyLimit   int64
	EnableRollover bool
}

// CreateTestTemplate creates an active monthly template with the given lines.
func CreateTestTemplate(t *testing.T, db *gorm.DB, familyID uint, lines ...TemplateLine) *models.Template {
	t.Helper()
	return CreateTestTemplateWithUnit(t, db, familyID, period.UnitMonthly, lines...)
}

// CreateTestTemplateWithUnit creates an active template with the given
// period unit and lines.
func CreateTestTemplateWithUnit(t *testing.T, db *gorm.DB, familyID uint, unit period.Unit, lines ...TemplateLine) *models.Template {
	t.Helper()

	var total int64
	template := &models.Template{
		FamilyID:       familyID,
		Name:           fmt.Sprintf("Test Template %d", nextID()),
		PeriodUnit:     unit,
		AlertThreshold: 80,
		AutoGenerate:   true,
		IsActive:       true,
	}
	for _, line := range lines {
		total += line.MonthlyLimit
		template.Categories = append(template.Categories, models.TemplateCategory{
			CategoryID:     line.CategoryID,
			MonthlyLimit:   line.MonthlyLimit,
			EnableRollover: line.EnableRollover,
		})
	}
	template.TotalBudget = total

	if err := db.Create(template).Error; err != nil {
		t.Fatalf("failed to create test template: %v", err)
	}
	return template
}

// BudgetLine describes one category line when building a test budget.
type BudgetLine struct {
	CategoryID     uint
	MonthlyLimit   int64
	EnableRollover bool
	RolloverAmount int64
}

// CreateTestBudget creates a budget for the period window containing anchor.
func CreateTestBudget(t *testing.T, db *gorm.DB, familyID uint, templateID *uint, unit period.Unit, anchor time.Time, lines ...BudgetLine) *models.Budget {
	t.Helper()

	window := period.Resolve(unit, anchor)

	var total int64
	budget := &models.Budget{
		FamilyID:       familyID,
		TemplateID:     templateID,
		Name:           fmt.Sprintf("Test Budget %d", nextID()),
		PeriodUnit:     unit,
		StartDate:      window.Start,
		EndDate:        window.End,
		AlertThreshold: 80,
	}
	for _, line := range lines {
		total += line.MonthlyLimit
		budget.Categories = append(budget.Categories, models.BudgetCategory{
			CategoryID:     line.CategoryID,
			MonthlyLimit:   line.MonthlyLimit,
			EnableRollover: line.EnableRollover,
			RolloverAmount: line.RolloverAmount,
		})
	}
	budget.TotalBudget = total

	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
