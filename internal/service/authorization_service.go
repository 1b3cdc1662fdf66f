package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/summercamp-api/internal/models"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
)

type roleLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthorizationService resolves the caller's role and checks route capabilities.
// Roles are read from the store on every call; nothing is cached.
type AuthorizationService struct {
	users  roleLookup
	logger *zap.Logger
}

// NewAuthorizationService constructs the authorization gate.
func NewAuthorizationService(users roleLookup, logger *zap.Logger) *AuthorizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorizationService{users: users, logger: logger}
}

// ResolvePrincipal looks up the stored role of the identity. Unknown users resolve to an
// unprivileged student principal.
func (s *AuthorizationService) ResolvePrincipal(ctx context.Context, identity *models.Identity) (*models.Principal, error) {
	if identity == nil || identity.Email == "" {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.Principal{Email: identity.Email, Role: models.RoleStudent}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve role")
	}
	return &models.Principal{Email: identity.Email, Role: user.EffectiveRole(), Known: true}, nil
}

// Check verifies every capability against the principal. subject is the email the route
// acts on and only matters for self-or-admin.
func (s *AuthorizationService) Check(principal *models.Principal, subject string, capabilities ...models.Capability) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	for _, capability := range capabilities {
		if !allows(principal, subject, capability) {
			s.logger.Debug("capability denied",
				zap.String("principal", principal.Email),
				zap.String("role", string(principal.Role)),
				zap.String("capability", string(capability)))
			return appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
		}
	}
	return nil
}

// Authorize resolves the principal and checks the capabilities in one pass.
func (s *AuthorizationService) Authorize(ctx context.Context, identity *models.Identity, subject string, capabilities ...models.Capability) (*models.Principal, error) {
	principal, err := s.ResolvePrincipal(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := s.Check(principal, subject, capabilities...); err != nil {
		return nil, err
	}
	return principal, nil
}

func allows(p *models.Principal, subject string, capability models.Capability) bool {
	switch capability {
	case models.CapabilityAuthenticated:
		return true
	case models.CapabilityAdmin:
		return p.IsAdmin()
	case models.CapabilityInstructor:
		return p.IsInstructor()
	case models.CapabilityStudent:
		return !p.IsAdmin() && !p.IsInstructor()
	case models.CapabilitySelfOrAdmin:
		return p.IsAdmin() || (subject != "" && subject == p.Email)
	default:
		return false
	}
}
