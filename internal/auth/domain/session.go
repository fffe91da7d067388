// Package domain defines authentication domain models: login sessions,
// CSRF binding and audit events.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an authenticated login session.
//
// PDK is the password-derived key held in process memory for the session's
// lifetime so per-file DEK unwrap at upload finalize does not require the
// plaintext password again. It must never be serialized or stored outside the
// process; the session store zeroes it on destroy.
type Session struct {
	Token     string
	UserID    uuid.UUID
	PDK       []byte
	CSRFToken string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
