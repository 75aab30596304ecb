// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation error")

	// ErrDenied is the uniform retrieval denial. Unknown share id, wrong
	// password, lockout and expiry all map here so callers cannot tell
	// which condition fired.
	ErrDenied = errors.New("access denied")

	// ErrCrypto indicates an authentication-tag or unwrap failure that is
	// not attributable to a known wrong password.
	ErrCrypto = errors.New("crypto failure")

	// ErrTransition indicates an illegal share status transition.
	ErrTransition = errors.New("illegal status transition")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)
