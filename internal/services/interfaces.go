package services

import (
	"time"

	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/period"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// FamilyServicer defines the contract for family membership logic.
type FamilyServicer interface {
	CreateFamily(name, currency string, creatorID uint) (*models.Family, error)
	GetUserFamilies(userID uint) ([]models.Family, error)
	GetFamilyByID(familyID uint) (*models.Family, error)
	AddMember(familyID, userID uint, role models.FamilyRole) (*models.FamilyMember, error)
	GetMemberRole(familyID, userID uint) (models.FamilyRole, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(familyID uint, name string, categoryType models.CategoryType, icon, color string) (*models.Category, error)
	GetFamilyCategories(familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(familyID, categoryID uint) (*models.Category, error)
	UpdateCategory(familyID, categoryID uint, name, icon, color string) (*models.Category, error)
	DeleteCategory(familyID, categoryID uint) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *uint
}

// TransactionServicer defines the contract for ledger entries.
type TransactionServicer interface {
	CreateTransaction(familyID, categoryID uint, transactionType models.TransactionType, amount int64, description string, date time.Time, createdBy uint) (*models.Transaction, error)
	GetFamilyTransactions(familyID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(familyID, transactionID uint) (*models.Transaction, error)
	DeleteTransaction(familyID, transactionID uint) error
}

// SpendAggregator sums ledger expenses by family, category, and window.
// Missing data is zero, never an error.
type SpendAggregator interface {
	SumExpenses(familyID, categoryID uint, window period.Window) (int64, error)
}

// TemplateCategoryInput is one category line in a template write.
type TemplateCategoryInput struct {
	CategoryID     uint  `json:"category_id" binding:"required"`
	MonthlyLimit   int64 `json:"monthly_limit" binding:"required,gt=0"`
	EnableRollover bool  `json:"enable_rollover"`
}

// TemplateServicer defines the contract for budget template CRUD.
// Updates replace the category set wholesale; already-generated budgets
// are never touched by a template edit.
type TemplateServicer interface {
	CreateTemplate(familyID uint, name string, unit period.Unit, alertThreshold *int, autoGenerate bool, categories []TemplateCategoryInput) (*models.Template, error)
	GetFamilyTemplates(familyID uint, page pagination.PageRequest, autoGenerate *bool) (*pagination.PageResponse[models.Template], error)
	GetTemplateByID(familyID, templateID uint) (*models.Template, error)
	UpdateTemplate(familyID, templateID uint, name string, unit *period.Unit, alertThreshold *int, autoGenerate *bool, categories []TemplateCategoryInput) (*models.Template, error)
	DeleteTemplate(familyID, templateID uint) error
}

// GenerationStatus classifies the per-template outcome of a bulk generation.
type GenerationStatus string

const (
	GenerationGenerated GenerationStatus = "generated"
	GenerationSkipped   GenerationStatus = "skipped"
	GenerationErrored   GenerationStatus = "errored"
)

// GenerationOutcome is one template's result within a bulk generation.
type GenerationOutcome struct {
	TemplateID   uint             `json:"template_id"`
	TemplateName string           `json:"template_name"`
	Status       GenerationStatus `json:"status"`
	BudgetID     *uint            `json:"budget_id,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// GenerationSummary aggregates a bulk generation run.
type GenerationSummary struct {
	Generated int                 `json:"generated"`
	Skipped   int                 `json:"skipped"`
	Errored   int                 `json:"errored"`
	Outcomes  []GenerationOutcome `json:"outcomes"`
}

// MissingTemplate describes an auto-generating template with no budget
// materialized for the reference period yet.
type MissingTemplate struct {
	TemplateID   uint        `json:"template_id"`
	TemplateName string      `json:"template_name"`
	TotalBudget  int64       `json:"total_budget"`
	PeriodUnit   period.Unit `json:"period_unit"`
	PeriodStart  time.Time   `json:"period_start"`
	PeriodEnd    time.Time   `json:"period_end"`
}

// CategoryRolloverPreview projects one budget category's rollover into
// the next period without persisting anything.
type CategoryRolloverPreview struct {
	CategoryID     uint           `json:"category_id"`
	CategoryName   string         `json:"category_name"`
	MonthlyLimit   int64          `json:"monthly_limit"`
	RolloverAmount int64          `json:"rollover_amount"`
	Spent          int64          `json:"spent"`
	Projected      RolloverResult `json:"projected"`
}

// GeneratorServicer materializes templates into dated budgets and drives
// missing-period remediation.
type GeneratorServicer interface {
	Generate(familyID, templateID uint, anchor *time.Time, createdBy uint) (*models.Budget, error)
	PreviewRollover(familyID, budgetID uint) ([]CategoryRolloverPreview, error)
	FindMissing(familyID uint, ref time.Time) ([]MissingTemplate, error)
	GenerateMissing(familyID uint, ref time.Time, createdBy uint) (*GenerationSummary, error)
	Sweep(ref time.Time) (*GenerationSummary, error)
}

// TransferResult reports a completed category-to-category transfer.
type TransferResult struct {
	BudgetID       uint      `json:"budget_id"`
	FromCategoryID uint      `json:"from_category_id"`
	ToCategoryID   uint      `json:"to_category_id"`
	Amount         int64     `json:"amount"`
	Reason         string    `json:"reason"`
	FromRollover   int64     `json:"from_rollover"`
	ToRollover     int64     `json:"to_rollover"`
	TransferredAt  time.Time `json:"transferred_at"`
}

// TransferServicer moves banked rollover allowance between two categories
// of one budget.
type TransferServicer interface {
	Transfer(familyID, budgetID, fromCategoryID, toCategoryID uint, amount int64, reason string) (*TransferResult, error)
}

// BudgetCategoryInput is one category line in a budget write.
type BudgetCategoryInput struct {
	CategoryID     uint  `json:"category_id" binding:"required"`
	MonthlyLimit   int64 `json:"monthly_limit" binding:"required,gt=0"`
	EnableRollover bool  `json:"enable_rollover"`
}

// CategoryStatus is the derived, never-persisted view of one budget
// category against live spend.
type CategoryStatus struct {
	CategoryID     uint    `json:"category_id"`
	CategoryName   string  `json:"category_name"`
	MonthlyLimit   int64   `json:"monthly_limit"`
	RolloverAmount int64   `json:"rollover_amount"`
	EffectiveLimit int64   `json:"effective_limit"`
	Spent          int64   `json:"spent"`
	Remaining      int64   `json:"remaining"`
	PercentUsed    float64 `json:"percent_used"`
	OverBudget     bool    `json:"over_budget"`
	NearLimit      bool    `json:"near_limit"`
}

// BudgetStatus is the derived view of a whole budget.
type BudgetStatus struct {
	BudgetID       uint             `json:"budget_id"`
	Name           string           `json:"name"`
	PeriodUnit     period.Unit      `json:"period_unit"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        time.Time        `json:"end_date"`
	TotalBudget    int64            `json:"total_budget"`
	TotalSpent     int64            `json:"total_spent"`
	AlertThreshold int              `json:"alert_threshold"`
	Categories     []CategoryStatus `json:"categories"`
}

// BudgetServicer defines the contract for reading and editing
// materialized budgets.
type BudgetServicer interface {
	CreateBudget(familyID uint, name string, unit period.Unit, anchor *time.Time, alertThreshold *int, categories []BudgetCategoryInput, createdBy uint) (*models.Budget, error)
	GetFamilyBudgets(familyID uint, page pagination.PageRequest, unit *period.Unit) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(familyID, budgetID uint) (*models.Budget, error)
	GetBudgetStatus(familyID, budgetID uint) (*BudgetStatus, error)
	UpdateBudget(familyID, budgetID uint, name string, alertThreshold *int, categories []BudgetCategoryInput) (*models.Budget, error)
	DeleteBudget(familyID, budgetID uint) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, familyID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
