package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/period"
	"famledger/internal/services"
	"famledger/internal/validator"
)

// --- mock services ---

type mockBudgetService struct {
	createBudgetFn     func(familyID uint, name string, unit period.Unit, anchor *time.Time, alertThreshold *int, categories []services.BudgetCategoryInput, createdBy uint) (*models.Budget, error)
	getFamilyBudgetsFn func(familyID uint, page pagination.PageRequest, unit *period.Unit) (*pagination.PageResponse[models.Budget], error)
	getBudgetByIDFn    func(familyID, budgetID uint) (*models.Budget, error)
	getBudgetStatusFn  func(familyID, budgetID uint) (*services.BudgetStatus, error)
	updateBudgetFn     func(familyID, budgetID uint, name string, alertThreshold *int, categories []services.BudgetCategoryInput) (*models.Budget, error)
	deleteBudgetFn     func(familyID, budgetID uint) error
}

func (m *mockBudgetService) CreateBudget(familyID uint, name string, unit period.Unit, anchor *time.Time, alertThreshold *int, categories []services.BudgetCategoryInput, createdBy uint) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(familyID, name, unit, anchor, alertThreshold, categories, createdBy)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) GetFamilyBudgets(familyID uint, page pagination.PageRequest, unit *period.Unit) (*pagination.PageResponse[models.Budget], error) {
	if m.getFamilyBudgetsFn != nil {
		return m.getFamilyBudgetsFn(familyID, page, unit)
	}
	resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockBudgetService) GetBudgetByID(familyID, budgetID uint) (*models.Budget, error) {
	if m.getBudgetByIDFn != nil {
		return m.getBudgetByIDFn(familyID, budgetID)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) GetBudgetStatus(familyID, budgetID uint) (*services.BudgetStatus, error) {
	if m.getBudgetStatusFn != nil {
		return m.getBudgetStatusFn(familyID, budgetID)
	}
	return &services.BudgetStatus{}, nil
}

func (m *mockBudgetService) UpdateBudget(familyID, budgetID uint, name string, alertThreshold *int, categories []services.BudgetCategoryInput) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(familyID, budgetID, name, alertThreshold, categories)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) DeleteBudget(familyID, budgetID uint) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(familyID, budgetID)
	}
	return nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

type mockGeneratorService struct {
	generateFn        func(familyID, templateID uint, anchor *time.Time, createdBy uint) (*models.Budget, error)
	previewRolloverFn func(familyID, budgetID uint) ([]services.CategoryRolloverPreview, error)
	findMissingFn     func(familyID uint, ref time.Time) ([]services.MissingTemplate, error)
	generateMissingFn func(familyID uint, ref time.Time, createdBy uint) (*services.GenerationSummary, error)
	sweepFn           func(ref time.Time) (*services.GenerationSummary, error)
}

func (m *mockGeneratorService) Generate(familyID, templateID uint, anchor *time.Time, createdBy uint) (*models.Budget, error) {
	if m.generateFn != nil {
		return m.generateFn(familyID, templateID, anchor, createdBy)
	}
	return &models.Budget{}, nil
}

func (m *mockGeneratorService) PreviewRollover(familyID, budgetID uint) ([]services.CategoryRolloverPreview, error) {
	if m.previewRolloverFn != nil {
		return m.previewRolloverFn(familyID, budgetID)
	}
	return []services.CategoryRolloverPreview{}, nil
}

func (m *mockGeneratorService) FindMissing(familyID uint, ref time.Time) ([]services.MissingTemplate, error) {
	if m.findMissingFn != nil {
		return m.findMissingFn(familyID, ref)
	}
	return []services.MissingTemplate{}, nil
}

func (m *mockGeneratorService) GenerateMissing(familyID uint, ref time.Time, createdBy uint) (*services.GenerationSummary, error) {
	if m.generateMissingFn != nil {
		return m.generateMissingFn(familyID, ref, createdBy)
	}
	return &services.GenerationSummary{}, nil
}

func (m *mockGeneratorService) Sweep(ref time.Time) (*services.GenerationSummary, error) {
	if m.sweepFn != nil {
		return m.sweepFn(ref)
	}
	return &services.GenerationSummary{}, nil
}

var _ services.GeneratorServicer = (*mockGeneratorService)(nil)

type mockTransferService struct {
	transferFn func(familyID, budgetID, fromCategoryID, toCategoryID uint, amount int64, reason string) (*services.TransferResult, error)
}

func (m *mockTransferService) Transfer(familyID, budgetID, fromCategoryID, toCategoryID uint, amount int64, reason string) (*services.TransferResult, error) {
	if m.transferFn != nil {
		return m.transferFn(familyID, budgetID, fromCategoryID, toCategoryID, amount, reason)
	}
	return &services.TransferResult{}, nil
}

var _ services.TransferServicer = (*mockTransferService)(nil)

type mockAuditService struct{}

func (m *mockAuditService) Log(_, _ uint, _, _ string, _ uint, _ string, _ map[string]interface{}) {}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectIdentity(userID, familyID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("familyID", familyID)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("/families/:familyID", injectIdentity(1, 1))
	auth.POST("/budgets", handler.CreateBudget)
	auth.POST("/budgets/generate", handler.GenerateBudget)
	auth.GET("/budgets/missing", handler.GetMissingBudgets)
	auth.POST("/budgets/generate-missing", handler.GenerateMissingBudgets)
	auth.GET("/budgets", handler.GetBudgets)
	auth.GET("/budgets/:id", handler.GetBudget)
	auth.GET("/budgets/:id/status", handler.GetBudgetStatus)
	auth.GET("/budgets/:id/rollover-preview", handler.PreviewRollover)
	auth.POST("/budgets/:id/transfer", handler.TransferFunds)
	auth.PUT("/budgets/:id", handler.UpdateBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	return r
}

func newBudgetHandler(budget *mockBudgetService, gen *mockGeneratorService, transfer *mockTransferService) *BudgetHandler {
	return NewBudgetHandler(budget, gen, transfer, &mockAuditService{})
}

// --- tests ---

func TestBudgetHandler_GenerateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		templateID := uint(7)
		gen := &mockGeneratorService{
			generateFn: func(familyID, tmplID uint, _ *time.Time, _ uint) (*models.Budget, error) {
				return &models.Budget{
					Base:       models.Base{ID: 42},
					FamilyID:   familyID,
					TemplateID: &tmplID,
					Name:       "Monthly Essentials",
					PeriodUnit: period.UnitMonthly,
				}, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, gen, &mockTransferService{}))

		rec := doRequest(r, "POST", "/families/1/budgets/generate", `{"template_id":7}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		budget := result["budget"].(map[string]interface{})
		if budget["template_id"].(float64) != float64(templateID) {
			t.Errorf("expected template_id=%d, got %v", templateID, budget["template_id"])
		}
	})

	t.Run("returns 409 when period already covered", func(t *testing.T) {
		gen := &mockGeneratorService{
			generateFn: func(_, _ uint, _ *time.Time, _ uint) (*models.Budget, error) {
				return nil, apperrors.ErrBudgetPeriodConflict
			},
		}
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, gen, &mockTransferService{}))

		rec := doRequest(r, "POST", "/families/1/budgets/generate", `{"template_id":7}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_PERIOD_CONFLICT")
	})

	t.Run("returns 400 on missing template_id", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, &mockGeneratorService{}, &mockTransferService{}))

		rec := doRequest(r, "POST", "/families/1/budgets/generate", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 404 on unknown template", func(t *testing.T) {
		gen := &mockGeneratorService{
			generateFn: func(_, _ uint, _ *time.Time, _ uint) (*models.Budget, error) {
				return nil, apperrors.ErrTemplateNotFound
			},
		}
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, gen, &mockTransferService{}))

		rec := doRequest(r, "POST", "/families/1/budgets/generate", `{"template_id":999}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TEMPLATE_NOT_FOUND")
	})
}

func TestBudgetHandler_GetMissingBudgets(t *testing.T) {
	t.Run("returns 200 with missing templates", func(t *testing.T) {
		gen := &mockGeneratorService{
			findMissingFn: func(familyID uint, _ time.Time) ([]services.MissingTemplate, error) {
				return []services.MissingTemplate{
					{TemplateID: 3, TemplateName: "Essentials", PeriodUnit: period.UnitMonthly},
				}, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, gen, &mockTransferService{}))

		rec := doRequest(r, "GET", "/families/1/budgets/missing", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		missing := result["missing"].([]interface{})
		if len(missing) != 1 {
			t.Fatalf("expected 1 missing template, got %d", len(missing))
		}
	})

	t.Run("returns 400 on bad ref time", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, &mockGeneratorService{}, &mockTransferService{}))

		rec := doRequest(r, "GET", "/families/1/budgets/missing?ref=yesterday", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_GenerateMissingBudgets(t *testing.T) {
	t.Run("returns 200 with summary", func(t *testing.T) {
		gen := &mockGeneratorService{
			generateMissingFn: func(_ uint, _ time.Time, _ uint) (*services.GenerationSummary, error) {
				budgetID := uint(10)
				return &services.GenerationSummary{
					Generated: 1,
					Skipped:   1,
					Outcomes: []services.GenerationOutcome{
						{TemplateID: 1, Status: services.GenerationGenerated, BudgetID: &budgetID},
						{TemplateID: 2, Status: services.GenerationSkipped},
					},
				}, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, gen, &mockTransferService{}))

		rec := doRequest(r, "POST", "/families/1/budgets/generate-missing", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["generated"].(float64) != 1 {
			t.Errorf("expected generated=1, got %v", result["generated"])
		}
		if result["skipped"].(float64) != 1 {
			t.Errorf("expected skipped=1, got %v", result["skipped"])
		}
	})
}

func TestBudgetHandler_TransferFunds(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		transfer := &mockTransferService{
			transferFn: func(_, budgetID, fromID, toID uint, amount int64, reason string) (*services.TransferResult, error) {
				return &services.TransferResult{
					BudgetID:       budgetID,
					FromCategoryID: fromID,
					ToCategoryID:   toID,
					Amount:         amount,
					Reason:         reason,
					FromRollover:   30000,
					ToRollover:     60000,
				}, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, &mockGeneratorService{}, transfer))

		rec := doRequest(r, "POST", "/families/1/budgets/5/transfer",
			`{"from_category_id":1,"to_category_id":2,"amount":50000,"reason":"dining out"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["from_rollover"].(float64) != 30000 {
			t.Errorf("expected from_rollover=30000, got %v", result["from_rollover"])
		}
	})

	t.Run("returns 400 on insufficient funds", func(t *testing.T) {
		transfer := &mockTransferService{
			transferFn: func(_, _, _, _ uint, _ int64, _ string) (*services.TransferResult, error) {
				return nil, apperrors.ErrInsufficientFunds
			},
		}
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, &mockGeneratorService{}, transfer))

		rec := doRequest(r, "POST", "/families/1/budgets/5/transfer",
			`{"from_category_id":1,"to_category_id":2,"amount":999999}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_FUNDS")
	})

	t.Run("returns 400 on non-positive amount", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, &mockGeneratorService{}, &mockTransferService{}))

		rec := doRequest(r, "POST", "/families/1/budgets/5/transfer",
			`{"from_category_id":1,"to_category_id":2,"amount":0}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestBudgetHandler_GetBudgetStatus(t *testing.T) {
	t.Run("returns 200 with derived status", func(t *testing.T) {
		budgetSvc := &mockBudgetService{
			getBudgetStatusFn: func(_, budgetID uint) (*services.BudgetStatus, error) {
				return &services.BudgetStatus{
					BudgetID:   budgetID,
					TotalSpent: 162000,
					Categories: []services.CategoryStatus{
						{CategoryID: 1, Spent: 102000, NearLimit: true},
					},
				}, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(budgetSvc, &mockGeneratorService{}, &mockTransferService{}))

		rec := doRequest(r, "GET", "/families/1/budgets/5/status", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["total_spent"].(float64) != 162000 {
			t.Errorf("expected total_spent=162000, got %v", result["total_spent"])
		}
	})

	t.Run("returns 404 when budget missing", func(t *testing.T) {
		budgetSvc := &mockBudgetService{
			getBudgetStatusFn: func(_, _ uint) (*services.BudgetStatus, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(newBudgetHandler(budgetSvc, &mockGeneratorService{}, &mockTransferService{}))

		rec := doRequest(r, "GET", "/families/1/budgets/5/status", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		budgetSvc := &mockBudgetService{
			createBudgetFn: func(familyID uint, name string, unit period.Unit, _ *time.Time, _ *int, categories []services.BudgetCategoryInput, _ uint) (*models.Budget, error) {
				return &models.Budget{
					Base:       models.Base{ID: 1},
					FamilyID:   familyID,
					Name:       name,
					PeriodUnit: unit,
				}, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(budgetSvc, &mockGeneratorService{}, &mockTransferService{}))

		rec := doRequest(r, "POST", "/families/1/budgets",
			`{"name":"Vacation","period_unit":"monthly","categories":[{"category_id":1,"monthly_limit":400000}]}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		budget := result["budget"].(map[string]interface{})
		if budget["name"] != "Vacation" {
			t.Errorf("expected Vacation, got %v", budget["name"])
		}
	})

	t.Run("returns 400 on empty categories", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, &mockGeneratorService{}, &mockTransferService{}))

		rec := doRequest(r, "POST", "/families/1/budgets",
			`{"name":"Vacation","period_unit":"monthly","categories":[]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on unknown period unit", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}, &mockGeneratorService{}, &mockTransferService{}))

		rec := doRequest(r, "POST", "/families/1/budgets",
			`{"name":"Vacation","period_unit":"fortnightly","categories":[{"category_id":1,"monthly_limit":400000}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
