package service

import "errors"

// Domain error taxonomy surfaced to the presentation layer. Store failures are
// wrapped with %w by the repositories; delivery failures are classified in the
// dispatch package.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")

	// ErrProtected marks an attempt to revoke a bootstrap admin.
	ErrProtected = errors.New("bootstrap admin is protected")
)
