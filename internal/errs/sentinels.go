// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrValidation indicates malformed input (bad code, ticket, phone format or an empty required field).
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation (duplicate ticket, flight pair, occupied gate).
	ErrConflict = errors.New("conflict")

	// ErrForbidden indicates a role or airline-scope mismatch.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState indicates a state-machine precondition was violated.
	ErrInvalidState = errors.New("invalid state")

	// ErrPrecondition indicates a cross-entity guard failed (e.g., loading before boarding).
	ErrPrecondition = errors.New("precondition failed")

	// ErrVersionConflict indicates optimistic concurrency failure (row changed since it was read).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)
