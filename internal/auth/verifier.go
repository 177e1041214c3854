package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"tenauth.org/internal/obs"
)

// VerifyAccessToken checks signature, issuer and expiry of an access
// token and returns the principal it names. Verification keys are
// resolved through the configured KeySource by kid.
func (s *Service) VerifyAccessToken(ctx context.Context, token string) (Principal, error) {
	if token == "" || s.keySource == nil {
		return Principal{}, ErrInvalidToken
	}
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return s.keySource.PublicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	role := Role(claims.Role)
	if !role.Valid() {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		SubjectID: claims.Subject,
		Role:      role,
		TenantID:  claims.Tenant,
	}, nil
}

// VerifyRefreshToken checks the refresh token cryptographically and
// then against the session store: a valid signature whose session row
// is gone is a revoked token. When the store itself fails the token is
// rejected rather than trusted, and the failure is logged.
func (s *Service) VerifyRefreshToken(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrInvalidToken
	}
	claims := &RefreshClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.refreshSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return Principal{}, ErrInvalidToken
	}
	principal := Principal{
		SubjectID: claims.Subject,
		Role:      Role(claims.Role),
		TenantID:  claims.Tenant,
		SessionID: claims.ID,
	}
	userID, err := principal.UserID()
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	if _, err := s.store.Sessions().Find(ctx, claims.ID, userID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			obs.LogError("refresh session lookup failed", map[string]any{
				"session_id": claims.ID,
				"error":      err.Error(),
			})
		}
		return Principal{}, ErrInvalidToken
	}
	return principal, nil
}
