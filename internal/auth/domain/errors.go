package domain

import (
	"github.com/allisson/vaultfs/internal/errors"
)

// Authentication error definitions.
var (
	// ErrSessionNotFound indicates no session exists for the presented token.
	ErrSessionNotFound = errors.Wrap(errors.ErrUnauthorized, "session not found")

	// ErrSessionExpired indicates the session is past its expiry.
	ErrSessionExpired = errors.Wrap(errors.ErrUnauthorized, "session expired")

	// ErrBadCredentials indicates a failed login: unknown handle, wrong
	// password, or a DEK unwrap tag failure (treated identically so the
	// response cannot distinguish them).
	ErrBadCredentials = errors.Wrap(errors.ErrBadCredentials, "authentication failed")
)
