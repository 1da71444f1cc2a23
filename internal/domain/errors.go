package domain

import "errors"

var (
	// ErrConfiguration is fatal at startup and never returned per request.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked signals temporary lockout after repeated failed attempts.
	ErrAccountLocked = errors.New("account locked")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrRateLimited   = errors.New("rate limited")

	// ErrTokenNotFound covers unknown, superseded and foreign-scoped tokens alike.
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenConsumed = errors.New("token already consumed")

	ErrPasswordPolicy       = errors.New("password policy violation")
	ErrDuplicateAssignment  = errors.New("profile already assigned")
	ErrEmailDispatchFailure = errors.New("email dispatch failure")
)
