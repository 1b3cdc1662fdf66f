package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/summercamp-api/internal/models"
)

// AuditStore persists audit entries.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records an audit log after a successful admin mutation. The resource id is taken
// from the :id path parameter.
func Audit(store AuditStore, logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var actor *string
		if principal := PrincipalFrom(c); principal != nil {
			email := principal.Email
			actor = &email
		}
		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		changes, _ := c.Get(auditChangesKey)
		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
			"changes": changes,
		})

		if err := store.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			ActorEmail: actor,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			NewValues:  body,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		}); err != nil {
			logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
		}
	}
}

const auditChangesKey = "audit_changes"

// SetAuditChanges attaches the applied change to the pending audit entry.
func SetAuditChanges(c *gin.Context, changes interface{}) {
	c.Set(auditChangesKey, changes)
}
