package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrEmailExists        = errors.New("auth: email already exists")
	ErrInvalidCredentials = errors.New("auth: email or password does not match")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrForbidden          = errors.New("auth: forbidden")

	// ErrKeyNotConfigured signals a deployment problem, not a request
	// problem: the service cannot mint access tokens at all.
	ErrKeyNotConfigured = errors.New("auth: signing key is not configured")
)
