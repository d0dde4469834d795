package integration

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"famledger/internal/handlers"
	"famledger/internal/logger"
	"famledger/internal/middleware"
	"famledger/internal/models"
	"famledger/internal/services"
	"famledger/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Family{},
		&models.FamilyMember{},
		&models.Category{},
		&models.Transaction{},
		&models.Template{},
		&models.TemplateCategory{},
		&models.Budget{},
		&models.BudgetCategory{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	userService := services.NewUserService(db)
	familyService := services.NewFamilyService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db)
	spendService := services.NewSpendService(db)
	templateService := services.NewTemplateService(db)
	generatorService := services.NewGeneratorService(db, spendService)
	transferService := services.NewTransferService(db, spendService)
	budgetService := services.NewBudgetService(db, spendService)
	auditService := services.NewAuditService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	familyHandler := handlers.NewFamilyHandler(familyService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	templateHandler := handlers.NewTemplateHandler(templateService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, generatorService, transferService, auditService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.POST("/families", familyHandler.CreateFamily)
	protected.GET("/families", familyHandler.GetFamilies)

	viewer := protected.Group("/families/:familyID",
		middleware.RequireFamilyRole(familyService, models.RoleViewer))
	member := protected.Group("/families/:familyID",
		middleware.RequireFamilyRole(familyService, models.RoleMember))
	admin := protected.Group("/families/:familyID",
		middleware.RequireFamilyRole(familyService, models.RoleAdmin))

	viewer.GET("", familyHandler.GetFamily)
	admin.POST("/members", familyHandler.AddMember)

	admin.POST("/categories", categoryHandler.CreateCategory)
	viewer.GET("/categories", categoryHandler.GetCategories)

	member.POST("/transactions", transactionHandler.CreateTransaction)
	viewer.GET("/transactions", transactionHandler.GetTransactions)

	admin.POST("/templates", templateHandler.CreateTemplate)
	viewer.GET("/templates", templateHandler.GetTemplates)
	admin.PUT("/templates/:id", templateHandler.UpdateTemplate)
	admin.DELETE("/templates/:id", templateHandler.DeleteTemplate)

	member.POST("/budgets", budgetHandler.CreateBudget)
	member.POST("/budgets/generate", budgetHandler.GenerateBudget)
	viewer.GET("/budgets/missing", budgetHandler.GetMissingBudgets)
	member.POST("/budgets/generate-missing", budgetHandler.GenerateMissingBudgets)
	viewer.GET("/budgets", budgetHandler.GetBudgets)
	viewer.GET("/budgets/:id", budgetHandler.GetBudget)
	viewer.GET("/budgets/:id/status", budgetHandler.GetBudgetStatus)
	viewer.GET("/budgets/:id/rollover-preview", budgetHandler.PreviewRollover)
	member.POST("/budgets/:id/transfer", budgetHandler.TransferFunds)
	member.PUT("/budgets/:id", budgetHandler.UpdateBudget)
	member.DELETE("/budgets/:id", budgetHandler.DeleteBudget)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token string, userID float64) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != 201 {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(float64)
}

// createFamily creates a family for the token's user and returns its ID.
func (app *testApp) createFamily(t *testing.T, token, name string) float64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"currency":"USD"}`, name)
	rec := app.request("POST", "/api/v1/families", body, token)
	if rec.Code != 201 {
		t.Fatalf("create family failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	family := result["family"].(map[string]interface{})
	return family["id"].(float64)
}

// createCategory creates an expense category and returns its ID.
func (app *testApp) createCategory(t *testing.T, token string, familyID float64, name string) float64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":"expense"}`, name)
	rec := app.request("POST", fmt.Sprintf("/api/v1/families/%.0f/categories", familyID), body, token)
	if rec.Code != 201 {
		t.Fatalf("create category failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	category := result["category"].(map[string]interface{})
	return category["id"].(float64)
}

// createExpense records an expense transaction dated at the given RFC 3339 time.
func (app *testApp) createExpense(t *testing.T, token string, familyID, categoryID float64, amount int64, date string) {
	t.Helper()
	body := fmt.Sprintf(`{"category_id":%.0f,"type":"expense","amount":%d,"description":"test expense","date":%q}`,
		categoryID, amount, date)
	rec := app.request("POST", fmt.Sprintf("/api/v1/families/%.0f/transactions", familyID), body, token)
	if rec.Code != 201 {
		t.Fatalf("create transaction failed: %d %s", rec.Code, rec.Body.String())
	}
}
