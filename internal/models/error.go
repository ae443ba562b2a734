package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Guard outcome errors
	ErrRateLimited        = errors.New("too many attempts")
	ErrInvalidInput       = errors.New("input contains disallowed content")
	ErrCredentialRejected = errors.New("invalid credentials")
	ErrVerificationFailed = errors.New("verification code rejected")

	// Two-factor errors
	ErrTwoFactorNotEnabled = errors.New("two-factor authentication not enabled")
)
