package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"famledger/internal/logger"
	"famledger/internal/models"
)

// auditService records sensitive operations. Logging is best-effort: a
// failed audit write must never fail the operation it describes.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log writes an audit entry asynchronously.
func (s *auditService) Log(userID, familyID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{}) {
	entry := models.AuditLog{
		UserID:       userID,
		FamilyID:     familyID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
	}

	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Warnw("failed to marshal audit log changes", "error", err, "action", action)
		} else {
			entry.Changes = string(data)
		}
	}

	go func() {
		if err := s.db.Create(&entry).Error; err != nil {
			logger.Get().Errorw("failed to create audit log entry",
				"error", err, "action", action, "resource_type", resourceType, "resource_id", resourceID)
		}
	}()
}
