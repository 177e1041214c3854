package httpapi

import (
	"context"
	"net/http"

	"tenauth.org/internal/audit"
	"tenauth.org/internal/auth"
)

type idResponse struct {
	ID int64 `json:"id"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var in auth.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeFieldError(w, http.StatusBadRequest, errValidation, "Malformed JSON body.", "")
		return
	}
	user, pair, err := a.svc.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(withAuditContext(r), "auth.register", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
	a.setAuthCookies(w, pair)
	writeJSON(w, http.StatusCreated, idResponse{ID: user.ID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFieldError(w, http.StatusBadRequest, errValidation, "Malformed JSON body.", "")
		return
	}
	user, pair, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(withAuditContext(r), "auth.login", map[string]any{
		"user_id": user.ID,
	})
	a.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, idResponse{ID: user.ID})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, pair, err := a.svc.Refresh(r.Context(), refreshTokenFromRequest(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(withAuditContext(r), "auth.refresh", map[string]any{
		"user_id":    user.ID,
		"session_id": pair.SessionID,
	})
	a.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, idResponse{ID: user.ID})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := a.svc.Logout(r.Context(), refreshTokenFromRequest(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(withAuditContext(r), "auth.logout", nil)
	a.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (a *API) handleSelf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errAuthentication, "Authentication required.")
		return
	}
	user, err := a.svc.Self(r.Context(), principal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// withAuditContext threads the request id into the audit context.
func withAuditContext(r *http.Request) context.Context {
	return audit.WithRequestID(r.Context(), RequestIDFromContext(r.Context()))
}
