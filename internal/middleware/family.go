package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
)

// RoleLookup resolves a user's role within a family. Implemented by the
// family service; an interface here keeps the middleware testable.
type RoleLookup interface {
	GetMemberRole(familyID, userID uint) (models.FamilyRole, error)
}

// RequireFamilyRole parses the :familyID path parameter, verifies the
// authenticated user is a member of that family with at least the given
// role, and stores the family ID and role in the context. Role gating is
// a routing concern; the services below the handlers receive an already
// authorized family ID.
func RequireFamilyRole(roles RoleLookup, min models.FamilyRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{
				"code":    apperrors.ErrUnauthorized.Code,
				"message": apperrors.ErrUnauthorized.Message,
			}})
			c.Abort()
			return
		}

		familyID, err := strconv.ParseUint(c.Param("familyID"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
				"code":    apperrors.ErrInvalidInput.Code,
				"message": "Invalid familyID",
			}})
			c.Abort()
			return
		}

		role, err := roles.GetMemberRole(uint(familyID), userID.(uint))
		if err != nil {
			c.JSON(apperrors.ErrNotFamilyMember.StatusCode, gin.H{"error": gin.H{
				"code":    apperrors.ErrNotFamilyMember.Code,
				"message": apperrors.ErrNotFamilyMember.Message,
			}})
			c.Abort()
			return
		}

		if !role.AtLeast(min) {
			c.JSON(apperrors.ErrForbidden.StatusCode, gin.H{"error": gin.H{
				"code":    apperrors.ErrForbidden.Code,
				"message": apperrors.ErrForbidden.Message,
			}})
			c.Abort()
			return
		}

		c.Set("familyID", uint(familyID))
		c.Set("familyRole", role)
		c.Next()
	}
}
