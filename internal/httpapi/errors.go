package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tenauth.org/internal/auth"
)

// apiError is one element of the uniform error envelope. Path and
// Location are populated for field-level validation failures and left
// empty otherwise.
type apiError struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

type errorBody struct {
	Errors []apiError `json:"errors"`
}

const (
	errValidation     = "ValidationError"
	errConflict       = "ConflictError"
	errAuthentication = "AuthenticationError"
	errAuthorization  = "AuthorizationError"
	errNotFound       = "NotFoundError"
	errConfiguration  = "ConfigurationError"
	errPersistence    = "PersistenceError"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errType, msg string) {
	writeJSON(w, code, errorBody{Errors: []apiError{{Type: errType, Msg: msg}}})
}

func writeFieldError(w http.ResponseWriter, code int, errType, msg, path string) {
	writeJSON(w, code, errorBody{Errors: []apiError{{
		Type:     errType,
		Msg:      msg,
		Path:     path,
		Location: "body",
	}}})
}

// writeServiceError maps service sentinels onto the error envelope.
// Anything unrecognized is reported as a persistence failure without
// leaking the underlying message.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, errValidation, trimSentinel(err, auth.ErrInvalidInput))
	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusBadRequest, errConflict, "Email already exists!")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, errAuthentication, "Email or password does not match.")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, errAuthentication, "Invalid or expired token.")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, errAuthorization, "You do not have permission to perform this action.")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, errNotFound, "Resource not found.")
	case errors.Is(err, auth.ErrKeyNotConfigured):
		writeError(w, http.StatusInternalServerError, errConfiguration, "Signing key is not configured.")
	default:
		writeError(w, http.StatusInternalServerError, errPersistence, "Internal error.")
	}
}

// trimSentinel strips the sentinel prefix so clients see only the
// human-readable detail.
func trimSentinel(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return "Invalid input."
	}
	return msg
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, errValidation, "Method not allowed.")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
