package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/pagination"
	"famledger/internal/period"
	"famledger/internal/services"
)

// BudgetHandler handles budget, generation, and transfer requests.
type BudgetHandler struct {
	budgetService    services.BudgetServicer
	generatorService services.GeneratorServicer
	transferService  services.TransferServicer
	auditService     services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(
	budgetService services.BudgetServicer,
	generatorService services.GeneratorServicer,
	transferService services.TransferServicer,
	auditService services.AuditServicer,
) *BudgetHandler {
	return &BudgetHandler{
		budgetService:    budgetService,
		generatorService: generatorService,
		transferService:  transferService,
		auditService:     auditService,
	}
}

// CreateBudgetRequest represents the request payload for creating a one-off budget.
type CreateBudgetRequest struct {
	Name           string                         `json:"name" binding:"required,min=1,max=100"`
	PeriodUnit     period.Unit                    `json:"period_unit" binding:"required,period_unit"`
	Anchor         *time.Time                     `json:"anchor"`
	AlertThreshold *int                           `json:"alert_threshold" binding:"omitempty,min=0,max=100"`
	Categories     []services.BudgetCategoryInput `json:"categories" binding:"required,min=1,dive"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
type UpdateBudgetRequest struct {
	Name           string                         `json:"name" binding:"omitempty,min=1,max=100"`
	AlertThreshold *int                           `json:"alert_threshold" binding:"omitempty,min=0,max=100"`
	Categories     []services.BudgetCategoryInput `json:"categories" binding:"omitempty,min=1,dive"`
}

// GenerateBudgetRequest represents the request payload for generating a
// budget from a template. Anchor selects the period; it defaults to now.
type GenerateBudgetRequest struct {
	TemplateID uint       `json:"template_id" binding:"required"`
	Anchor     *time.Time `json:"anchor"`
}

// TransferRequest represents the request payload for a category-to-category transfer.
type TransferRequest struct {
	FromCategoryID uint   `json:"from_category_id" binding:"required"`
	ToCategoryID   uint   `json:"to_category_id" binding:"required"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Reason         string `json:"reason" binding:"max=255"`
}

// CreateBudget handles the creation of a one-off budget.
// @Summary     Create a budget
// @Description Create a one-off budget not backed by a template
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.CreateBudget(
		familyID, req.Name, req.PeriodUnit, req.Anchor, req.AlertThreshold, req.Categories, userID,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, familyID, "CREATE_BUDGET", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "period_unit": req.PeriodUnit})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GenerateBudget materializes a budget from a template.
// @Summary     Generate a budget
// @Description Generate a budget from a template for the period containing the anchor, carrying rollover from the previous period
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       request body GenerateBudgetRequest true "Generation parameters"
// @Success     201 {object} models.Budget "Budget generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     409 {object} ErrorResponse "Budget already exists for this period"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets/generate [post]
func (h *BudgetHandler) GenerateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GenerateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.generatorService.Generate(familyID, req.TemplateID, req.Anchor, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, familyID, "GENERATE_BUDGET", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"template_id": req.TemplateID, "start_date": budget.StartDate})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetMissingBudgets lists templates without a budget for the current period.
// @Summary     Get missing budgets
// @Description List auto-generating templates that have no budget for the period containing ref (default now)
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path  int    true  "Family ID"
// @Param       ref      query string false "Reference time (RFC 3339)"
// @Success     200 {array} services.MissingTemplate "Missing templates"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets/missing [get]
func (h *BudgetHandler) GetMissingBudgets(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ref := time.Now()
	if v := c.Query("ref"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid ref time"))
			return
		}
		ref = parsed
	}

	missing, err := h.generatorService.FindMissing(familyID, ref)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"missing": missing})
}

// GenerateMissingBudgets generates budgets for all missing templates.
// @Summary     Generate missing budgets
// @Description Generate a budget for every auto-generating template missing one; failures are reported per template
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path  int    true  "Family ID"
// @Param       ref      query string false "Reference time (RFC 3339)"
// @Success     200 {object} services.GenerationSummary "Generation summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets/generate-missing [post]
func (h *BudgetHandler) GenerateMissingBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ref := time.Now()
	if v := c.Query("ref"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid ref time"))
			return
		}
		ref = parsed
	}

	summary, err := h.generatorService.GenerateMissing(familyID, ref, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, familyID, "GENERATE_MISSING_BUDGETS", "budget", 0, c.ClientIP(),
		map[string]interface{}{"generated": summary.Generated, "skipped": summary.Skipped, "errored": summary.Errored})

	c.JSON(http.StatusOK, summary)
}

// GetBudgets lists the family's budgets.
// @Summary     Get budgets
// @Description Get a paginated list of the family's budgets, newest period first
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       familyID    path  int    true  "Family ID"
// @Param       period_unit query string false "Filter by period unit"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Paginated budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets [get]
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var unit *period.Unit
	if v := c.Query("period_unit"); v != "" {
		u := period.Unit(v)
		if !u.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid period_unit"))
			return
		}
		unit = &u
	}

	budgets, err := h.budgetService.GetFamilyBudgets(familyID, page, unit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, budgets)
}

// GetBudget returns one budget with its category lines.
// @Summary     Get a budget
// @Description Get a single budget by ID
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       id       path int true "Budget ID"
// @Success     200 {object} models.Budget "Budget"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(familyID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// GetBudgetStatus returns the derived spend view of a budget.
// @Summary     Get budget status
// @Description Get per-category spend, remaining allowance, and alert flags computed against the ledger
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       id       path int true "Budget ID"
// @Success     200 {object} services.BudgetStatus "Budget status"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets/{id}/status [get]
func (h *BudgetHandler) GetBudgetStatus(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	status, err := h.budgetService.GetBudgetStatus(familyID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// PreviewRollover projects next-period rollover for a budget.
// @Summary     Preview rollover
// @Description Project what each category would carry into the next period without persisting anything
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       id       path int true "Budget ID"
// @Success     200 {array} services.CategoryRolloverPreview "Rollover preview"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets/{id}/rollover-preview [get]
func (h *BudgetHandler) PreviewRollover(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	previews, err := h.generatorService.PreviewRollover(familyID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"preview": previews})
}

// TransferFunds moves rollover allowance between two categories.
// @Summary     Transfer between categories
// @Description Move banked rollover allowance from one category of a budget to another
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       id       path int true "Budget ID"
// @Param       request body TransferRequest true "Transfer details"
// @Success     200 {object} services.TransferResult "Transfer completed"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient funds"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets/{id}/transfer [post]
func (h *BudgetHandler) TransferFunds(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.transferService.Transfer(
		familyID, budgetID, req.FromCategoryID, req.ToCategoryID, req.Amount, req.Reason,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, familyID, "TRANSFER_FUNDS", "budget", budgetID, c.ClientIP(),
		map[string]interface{}{
			"from_category_id": req.FromCategoryID,
			"to_category_id":   req.ToCategoryID,
			"amount":           req.Amount,
			"reason":           req.Reason,
		})

	c.JSON(http.StatusOK, result)
}

// UpdateBudget handles updating a budget.
// @Summary     Update a budget
// @Description Update a budget's name, threshold, or category lines
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       id       path int true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to update"
// @Success     200 {object} models.Budget "Budget updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.UpdateBudget(familyID, budgetID, req.Name, req.AlertThreshold, req.Categories)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, familyID, "UPDATE_BUDGET", "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget handles deleting a budget.
// @Summary     Delete a budget
// @Description Delete a budget and its category lines
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       id       path int true "Budget ID"
// @Success     204 "Budget deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(familyID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, familyID, "DELETE_BUDGET", "budget", budgetID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}
