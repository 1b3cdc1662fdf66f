package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/internal/service"
)

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func TestAuditRecordsSuccessfulAdminMutation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &recordingAudit{}
	gate := service.NewAuthorizationService(roles, nil)

	r := gin.New()
	r.PATCH("/classes/:id/status",
		Authenticate(tokens),
		Require(gate, models.CapabilityAdmin),
		Audit(store, nil, models.AuditActionClassStatus, "classes"),
		func(c *gin.Context) {
			SetAuditChanges(c, gin.H{"status": "approved"})
			c.Status(http.StatusOK)
		})

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPatch, "/classes/c1/status", "student-token").Code)
	assert.Empty(t, store.logs)

	assert.Equal(t, http.StatusOK, call(r, http.MethodPatch, "/classes/c1/status", "admin-token").Code)
	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	require.NotNil(t, entry.ActorEmail)
	assert.Equal(t, "root@example.com", *entry.ActorEmail)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "c1", *entry.ResourceID)
	assert.Contains(t, string(entry.NewValues), `"approved"`)
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &recordingAudit{}

	r := gin.New()
	r.PATCH("/users/:id/role", Audit(store, nil, models.AuditActionRoleChange, "users"), func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	call(r, http.MethodPatch, "/users/u1/role", "")
	assert.Empty(t, store.logs)
}
