package auth

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("resource conflict")
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned for a missing tenant, an unknown user and a
	// wrong password alike, so callers cannot tell which check failed.
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("invalid token")
)
