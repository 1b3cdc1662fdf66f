package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/summercamp-api/internal/models"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
	"github.com/noah-isme/summercamp-api/pkg/response"
)

// ContextPrincipalKey is the gin context key storing the authorized principal.
const ContextPrincipalKey = "principal"

// SubjectParam names the path parameter self-or-admin routes compare against.
const SubjectParam = "email"

// Authorizer resolves the caller's role and checks capabilities.
type Authorizer interface {
	Authorize(ctx context.Context, identity *models.Identity, subject string, capabilities ...models.Capability) (*models.Principal, error)
}

// Require resolves the principal for the authenticated identity and enforces every listed
// capability before the handler runs.
func Require(gate Authorizer, capabilities ...models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)
		if identity == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		principal, err := gate.Authorize(c.Request.Context(), identity, strings.ToLower(strings.TrimSpace(c.Param(SubjectParam))), capabilities...)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Require.
func PrincipalFrom(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*models.Principal)
	return principal
}
