// Package http provides HTTP middleware and handlers for authentication.
package http

import (
	"context"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
)

// Cookie names used by the session and CSRF layers.
const (
	// SessionCookie carries the opaque session token. HttpOnly.
	SessionCookie = "session"

	// CSRFCookie carries the CSRF token. Deliberately NOT HttpOnly: the page
	// script reads it and echoes it back in the CSRFHeader on every mutating
	// request (double-submit).
	CSRFCookie = "csrf_token"

	// CSRFHeader is the request header checked against the session's CSRF token.
	CSRFHeader = "X-CSRF-Token"
)

// sessionKey is a context key type for storing authenticated sessions.
type sessionKey struct{}

// WithSession stores an authenticated session in the context.
// Called by the authentication middleware after session validation.
func WithSession(ctx context.Context, session *authDomain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSession retrieves the authenticated session from the context.
// Returns (session, true) if present, or (nil, false) otherwise.
func GetSession(ctx context.Context) (*authDomain.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*authDomain.Session)
	return session, ok
}
