package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/services"
)

// FamilyHandler handles family and membership requests.
type FamilyHandler struct {
	familyService services.FamilyServicer
	auditService  services.AuditServicer
}

// NewFamilyHandler creates a new FamilyHandler.
func NewFamilyHandler(familyService services.FamilyServicer, auditService services.AuditServicer) *FamilyHandler {
	return &FamilyHandler{familyService: familyService, auditService: auditService}
}

// CreateFamilyRequest represents the request payload for creating a family.
type CreateFamilyRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Currency string `json:"currency" binding:"omitempty,iso4217"`
}

// AddMemberRequest represents the request payload for enrolling a member.
type AddMemberRequest struct {
	UserID uint              `json:"user_id" binding:"required"`
	Role   models.FamilyRole `json:"role" binding:"required,family_role"`
}

// CreateFamily handles the creation of a new family.
// @Summary     Create a family
// @Description Create a new family with the authenticated user as admin
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateFamilyRequest true "Family details"
// @Success     201 {object} models.Family "Family created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families [post]
func (h *FamilyHandler) CreateFamily(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	family, err := h.familyService.CreateFamily(req.Name, req.Currency, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, family.ID, "CREATE_FAMILY", "family", family.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "currency": family.Currency})

	c.JSON(http.StatusCreated, gin.H{"family": family})
}

// GetFamilies lists the authenticated user's families.
// @Summary     Get families
// @Description Get all families the authenticated user belongs to
// @Tags        families
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Family "Families"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families [get]
func (h *FamilyHandler) GetFamilies(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	families, err := h.familyService.GetUserFamilies(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"families": families})
}

// GetFamily returns one family with its members.
// @Summary     Get a family
// @Description Get a family and its members
// @Tags        families
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Success     200 {object} models.Family "Family"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a family member"
// @Failure     404 {object} ErrorResponse "Family not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID} [get]
func (h *FamilyHandler) GetFamily(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	family, err := h.familyService.GetFamilyByID(familyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"family": family})
}

// AddMember enrolls a user into the family.
// @Summary     Add a family member
// @Description Enroll a user into the family with a role
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       familyID path int true "Family ID"
// @Param       request body AddMemberRequest true "Member details"
// @Success     201 {object} models.FamilyMember "Member added"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Admin role required"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families/{familyID}/members [post]
func (h *FamilyHandler) AddMember(c *gin.Context) {
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

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	member, err := h.familyService.AddMember(familyID, req.UserID, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, familyID, "ADD_MEMBER", "family_member", member.ID, c.ClientIP(),
		map[string]interface{}{"user_id": req.UserID, "role": req.Role})

	c.JSON(http.StatusCreated, gin.H{"member": member})
}
