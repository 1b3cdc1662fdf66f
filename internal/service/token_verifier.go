package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/summercamp-api/internal/models"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
)

// IdentityVerifier vouches for the subject behind a bearer credential.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*models.Identity, error)
}

// TokenVerifierConfig configures HS256 verification.
type TokenVerifierConfig struct {
	Secret string
	Issuer string
}

// TokenVerifier verifies HS256 access tokens issued by the identity provider.
type TokenVerifier struct {
	config TokenVerifierConfig
	parser *jwt.Parser
}

// NewTokenVerifier constructs a TokenVerifier.
func NewTokenVerifier(config TokenVerifierConfig) *TokenVerifier {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &TokenVerifier{config: config, parser: jwt.NewParser(opts...)}
}

// Verify parses and validates the token, returning the subject email.
func (v *TokenVerifier) Verify(_ context.Context, credential string) (*models.Identity, error) {
	if credential == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing token")
	}
	token, err := v.parser.ParseWithClaims(credential, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no subject email")
	}
	return &models.Identity{Email: email}, nil
}
