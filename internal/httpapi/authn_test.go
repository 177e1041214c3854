package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tenauth.org/internal/auth"
)

func TestAccessTokenFromHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/self", nil)
	req.Header.Set(authHeader, "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: "cookie-token"})

	if got := accessTokenFromRequest(req); got != "header-token" {
		t.Fatalf("header must win: %q", got)
	}
}

func TestAccessTokenFallsBackToCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/self", nil)
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: "cookie-token"})

	if got := accessTokenFromRequest(req); got != "cookie-token" {
		t.Fatalf("expected cookie fallback, got %q", got)
	}
}

func TestAccessTokenUndefinedHeaderUsesCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/self", nil)
	req.Header.Set(authHeader, "undefined")
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: "cookie-token"})

	if got := accessTokenFromRequest(req); got != "cookie-token" {
		t.Fatalf(`literal "undefined" header must fall back to cookie, got %q`, got)
	}
}

func TestAccessTokenBadScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/self", nil)
	req.Header.Set(authHeader, "Basic dXNlcjpwYXNz")
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: "cookie-token"})

	if got := accessTokenFromRequest(req); got != "" {
		t.Fatalf("non-bearer scheme must not yield a token, got %q", got)
	}
}

func TestRefreshTokenCookieOnly(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set(authHeader, "Bearer header-token")

	if got := refreshTokenFromRequest(req); got != "" {
		t.Fatalf("refresh token must never come from a header, got %q", got)
	}

	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "refresh-cookie"})
	if got := refreshTokenFromRequest(req); got != "refresh-cookie" {
		t.Fatalf("expected refresh cookie, got %q", got)
	}
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{
		SubjectID: "1", Role: auth.RoleAdmin,
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireRoleRejectsWrongRole(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{
		SubjectID: "1", Role: auth.RoleCustomer,
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate header set")
	}
}

func TestRequireRoleRejectsMissingPrincipal(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate header set")
	}
}

func TestRequireRoleAcceptsAnyListedRole(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin, auth.RoleManager)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{
		SubjectID: "2", Role: auth.RoleManager,
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
