package httpapi

import (
	"net/http"

	"tenauth.org/internal/audit"
	"tenauth.org/internal/auth"
)

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.svc.ListUsers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if users == nil {
			users = []*auth.User{}
		}
		writeJSON(w, http.StatusOK, users)
	case http.MethodPost:
		var in auth.RegisterInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeFieldError(w, http.StatusBadRequest, errValidation, "Malformed JSON body.", "")
			return
		}
		user, err := a.svc.CreateUser(r.Context(), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		_ = audit.LogEvent(withAuditContext(r), "user.created", map[string]any{
			"user_id": user.ID,
			"role":    string(user.Role),
		})
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/users/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		user, err := a.svc.GetUser(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut, http.MethodPatch:
		var in auth.UpdateUserInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeFieldError(w, http.StatusBadRequest, errValidation, "Malformed JSON body.", "")
			return
		}
		user, err := a.svc.UpdateUser(r.Context(), id, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		_ = audit.LogEvent(withAuditContext(r), "user.updated", map[string]any{
			"user_id": user.ID,
		})
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := a.svc.DeleteUser(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		_ = audit.LogEvent(withAuditContext(r), "user.deleted", map[string]any{
			"user_id": id,
		})
		writeJSON(w, http.StatusOK, map[string]any{})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}
