// Package common defines shared constants, sentinel errors and small random
// helpers used across the server layers. Callers should use errors.Is to
// match the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrRateLimited    = errors.New("rate limited")

	// ErrInvalidToken covers every refresh-token rejection: malformed, unknown,
	// revoked, expired or hash mismatch. Callers must not be able to tell them apart.
	ErrInvalidToken = errors.New("invalid or expired token")
)
