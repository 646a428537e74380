package handler

import (
	"encoding/json"
	"log/slog"

	"learnhub/internal/models"
	"learnhub/internal/repository"

	"github.com/gin-gonic/gin"
)

// auditLog records an action taken through the API. Failures are logged only.
func auditLog(c *gin.Context, store repository.AuditLogStore, userID uint, action, resource, resourceID string, meta map[string]interface{}) {
	if store == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	if userID != 0 {
		entry.UserID = &userID
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			entry.Metadata = string(b)
		}
	}
	if err := store.Create(c.Request.Context(), entry); err != nil {
		slog.WarnContext(c.Request.Context(), "audit log not written", "action", action, "error", err)
	}
}
