package httpapi

import (
	"net/http"
	"time"

	"tenauth.org/internal/auth"
)

// CookieSettings controls how auth cookies are scoped.
type CookieSettings struct {
	Domain string
	Secure bool
}

// setAuthCookies writes both token cookies. Lifetimes come from the
// token pair itself so cookie expiry always tracks token expiry.
func (a *API) setAuthCookies(w http.ResponseWriter, pair *auth.TokenPair) {
	now := time.Now()
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   a.cookies.Domain,
		MaxAge:   int(pair.AccessExpiresAt.Sub(now).Seconds()),
		HttpOnly: true,
		Secure:   a.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   a.cookies.Domain,
		MaxAge:   int(pair.RefreshExpiresAt.Sub(now).Seconds()),
		HttpOnly: true,
		Secure:   a.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies expires both token cookies.
func (a *API) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   a.cookies.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   a.cookies.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
