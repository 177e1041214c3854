package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"tenauth.org/internal/audit"
	"tenauth.org/internal/auth"
)

func (a *API) handleTenants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tenants, err := a.svc.ListTenants(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if tenants == nil {
			tenants = []*auth.Tenant{}
		}
		writeJSON(w, http.StatusOK, tenants)
	case http.MethodPost:
		var in auth.Tenant
		if err := decodeJSON(w, r, &in); err != nil {
			writeFieldError(w, http.StatusBadRequest, errValidation, "Malformed JSON body.", "")
			return
		}
		tenant, err := a.svc.CreateTenant(r.Context(), &in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		_ = audit.LogEvent(withAuditContext(r), "tenant.created", map[string]any{
			"tenant_id": tenant.ID,
		})
		writeJSON(w, http.StatusCreated, tenant)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTenantByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/tenants/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		tenant, err := a.svc.GetTenant(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tenant)
	case http.MethodPut, http.MethodPatch:
		var in auth.Tenant
		if err := decodeJSON(w, r, &in); err != nil {
			writeFieldError(w, http.StatusBadRequest, errValidation, "Malformed JSON body.", "")
			return
		}
		in.ID = id
		tenant, err := a.svc.UpdateTenant(r.Context(), &in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		_ = audit.LogEvent(withAuditContext(r), "tenant.updated", map[string]any{
			"tenant_id": tenant.ID,
		})
		writeJSON(w, http.StatusOK, tenant)
	case http.MethodDelete:
		if err := a.svc.DeleteTenant(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		_ = audit.LogEvent(withAuditContext(r), "tenant.deleted", map[string]any{
			"tenant_id": id,
		})
		writeJSON(w, http.StatusOK, map[string]any{})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

// pathID extracts the numeric id that follows prefix. Nested paths and
// non-numeric ids are a 404: no such route.
func pathID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, errNotFound, "Resource not found.")
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, errNotFound, "Resource not found.")
		return 0, false
	}
	return id, true
}
