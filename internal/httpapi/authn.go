package httpapi

import (
	"net/http"
	"strings"

	"tenauth.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// accessTokenFromRequest pulls the access token from the Authorization
// header, falling back to the cookie when the header is absent or
// carries the literal string "undefined" (what a browser client sends
// when its stored token variable was never set).
func accessTokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header != "" && header != "undefined" {
		if strings.HasPrefix(header, bearer) {
			return strings.TrimSpace(header[len(bearer):])
		}
		return ""
	}
	if c, err := r.Cookie(accessCookieName); err == nil {
		return c.Value
	}
	return ""
}

// refreshTokenFromRequest pulls the refresh token. Cookie only; the
// refresh token is never accepted from a header.
func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

// withAccessToken authenticates the request via its access token and
// attaches the resulting principal. No token or a bad token is a 401.
func (a *API) withAccessToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := accessTokenFromRequest(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, errAuthentication, "Authentication required.")
			return
		}
		principal, err := a.svc.VerifyAccessToken(r.Context(), token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	}
}

// RequireRole guards a handler behind one of the given roles. A
// request with no principal is unauthenticated (401); a principal with
// the wrong role is forbidden (403).
func RequireRole(roles ...auth.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, errAuthentication, "Authentication required.")
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
			writeError(w, http.StatusForbidden, errAuthorization, "You do not have permission to perform this action.")
		}
	}
}
