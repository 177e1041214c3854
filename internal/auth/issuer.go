package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"tenauth.org/internal/obs"
)

// issueFor mints an access/refresh pair for the user. The session row
// is written before the refresh token is signed, so every token the
// client ever sees has a live session behind it.
func (s *Service) issueFor(ctx context.Context, u *User) (*TokenPair, error) {
	key, kid, err := s.keychain.Active()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)
	principal := PrincipalForUser(u)

	sessionID := s.newSessionID()
	if _, err := s.store.Sessions().Create(ctx, sessionID, u.ID, refreshExp); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodRS256, AccessClaims{
		Role:   string(principal.Role),
		Tenant: principal.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   principal.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	accessToken.Header["kid"] = kid
	access, err := accessToken.SignedString(key)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	obs.TokenIssued("access")

	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		Role:   string(principal.Role),
		Tenant: principal.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   principal.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			ID:        sessionID,
		},
	}).SignedString(s.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	obs.TokenIssued("refresh")

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        sessionID,
	}, nil
}

func (s *Service) revokeSession(ctx context.Context, sessionID string) error {
	if err := s.store.Sessions().Delete(ctx, sessionID); err != nil {
		return err
	}
	obs.SessionRevoked()
	return nil
}
