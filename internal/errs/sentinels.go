// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates failed authentication. The gate returns it for every
	// token or liveness failure so callers cannot tell expiry from forgery.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials indicates a login with an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid indicates a token that failed verification for any reason.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrAccountInactive indicates a valid token for a deactivated or deleted account.
	ErrAccountInactive = errors.New("account inactive")

	// ErrForbidden indicates an authenticated caller lacking the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation")
)
