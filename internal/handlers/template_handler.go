package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/pagination"
	"famledger/internal/period"
	"famledger/internal/services"
)

// TemplateHandler handles budget template requests.
type TemplateHandler struct {
	templateService services.TemplateServicer
	auditService    services.AuditServicer
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService services.TemplateServicer, auditService services.AuditServicer) *TemplateHandler {
	return &TemplateHandler{templateService: templateService, auditService: auditService}
}

// CreateTemplateRequest represents the request payload for creating a template.
type CreateTemplateRequest struct {
	Name           string                           `json:"name" binding:"required,min=1,max=100"`
	PeriodUnit     period.Unit                      `json:"period_unit" binding:"required,period_unit"`
	AlertThreshold *int                             `json:"alert_threshold" binding:"omitempty,min=0,max=100"`
	AutoGenerate   bool                             `json:"auto_generate"`
	Categories     []services.TemplateCategoryInput `json:"categories" binding:"required,min=1,dive"`
}

// UpdateTemplateRequest represents the request payload for updating a template.
type UpdateTemplateRequest struct {
	Name           string                           `json:"name" binding:"omitempty,min=1,max=100"`
	PeriodUnit     *period.Unit                     `json:"period_unit" binding:"omitempty,period_unit"`
	AlertThreshold *int                             `json:"alert_threshold" binding:"omitempty,min=0,max=100"`
	AutoGenerate   *bool                            `json:"auto_generate"`
	Categories     []services.TemplateCategoryInput `json:"categories" binding:"omitempty,min=1,dive"`
}

// CreateTemplate handles the creation of a new budget template.
// @Summary     Create a template
// @Description Create a reusable budget template with category limits
// @Tags        templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       request body CreateTemplateRequest true "Template details"
// @Success     201 {object} models.Template "Template created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate template name"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
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

	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	template, err := h.templateService.CreateTemplate(
		familyID, req.Name, req.PeriodUnit, req.AlertThreshold, req.AutoGenerate, req.Categories,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, familyID, "CREATE_TEMPLATE", "template", template.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "period_unit": req.PeriodUnit, "categories": len(req.Categories)})

	c.JSON(http.StatusCreated, gin.H{"template": template})
}

// GetTemplates lists the family's templates.
// @Summary     Get templates
// @Description Get a paginated list of the family's active templates
// @Tags        templates
// @Produce     json
// @Security    BearerAuth
// @Param       familyID      path  int  true  "Family ID"
// @Param       auto_generate query bool false "Filter by auto-generate flag"
// @Param       page          query int  false "Page number (default 1)"
// @Param       page_size     query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Template] "Paginated templates"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/templates [get]
func (h *TemplateHandler) GetTemplates(c *gin.Context) {
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

	var autoGenerate *bool
	switch c.Query("auto_generate") {
	case "true":
		b := true
		autoGenerate = &b
	case "false":
		b := false
		autoGenerate = &b
	}

	templates, err := h.templateService.GetFamilyTemplates(familyID, page, autoGenerate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, templates)
}

// GetTemplate returns one template with its category lines.
// @Summary     Get a template
// @Description Get a single template by ID
// @Tags        templates
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       id       path int true "Template ID"
// @Success     200 {object} models.Template "Template"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	template, err := h.templateService.GetTemplateByID(familyID, templateID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": template})
}

// UpdateTemplate handles updating a template.
// @Summary     Update a template
// @Description Update a template; providing categories replaces the whole set
// @Tags        templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       id       path int true "Template ID"
// @Param       request body UpdateTemplateRequest true "Fields to update"
// @Success     200 {object} models.Template "Template updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
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
	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	template, err := h.templateService.UpdateTemplate(
		familyID, templateID, req.Name, req.PeriodUnit, req.AlertThreshold, req.AutoGenerate, req.Categories,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, familyID, "UPDATE_TEMPLATE", "template", templateID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"template": template})
}

// DeleteTemplate handles deactivating a template.
// @Summary     Delete a template
// @Description Deactivate a template; generated budgets are kept
// @Tags        templates
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       id       path int true "Template ID"
// @Success     204 "Template deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
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
	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.templateService.DeleteTemplate(familyID, templateID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, familyID, "DELETE_TEMPLATE", "template", templateID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}
