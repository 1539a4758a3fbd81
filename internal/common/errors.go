package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound        = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrUnsupported    = errors.New("operation not supported by this strategy")

	// Credential errors. Unknown users and wrong passwords share ErrInvalidCredentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation error")

	// External identity provider errors (denial, bad state, failed exchange or profile fetch).
	ErrProviderAuth = errors.New("provider authentication failed")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
