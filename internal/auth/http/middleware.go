package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authService "github.com/allisson/vaultfs/internal/auth/service"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	"github.com/allisson/vaultfs/internal/httputil"
)

// AuthenticationMiddleware authenticates requests via the session cookie.
//
// The middleware:
//  1. Reads the opaque token from the session cookie
//  2. Looks it up in the in-process session store (expired sessions are
//     destroyed on access and treated as absent)
//  3. Stores the session in the request context for handlers via GetSession()
//
// Missing cookie or unknown/expired token → 401.
func AuthenticationMiddleware(
	sessionStore authService.SessionStore,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			logger.Debug("authentication failed: missing session cookie")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		session, ok := sessionStore.Get(token)
		if !ok {
			logger.Debug("authentication failed: unknown or expired session")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		ctx := WithSession(c.Request.Context(), session)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CSRFMiddleware enforces the double-submit CSRF check on mutating requests.
//
// Safe methods (GET, HEAD, OPTIONS) pass through. Every other method must
// carry the CSRF token in the X-CSRF-Token header, and the value must match
// the token bound to the authenticated session. The comparison is constant
// time. MUST be used after AuthenticationMiddleware.
func CSRFMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		session, ok := GetSession(c.Request.Context())
		if !ok {
			// Should never happen - authentication middleware runs first.
			logger.Error("csrf middleware: no authenticated session in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		header := c.GetHeader(CSRFHeader)
		if header == "" {
			logger.Debug("csrf check failed: missing header")
			httputil.HandleErrorGin(c, apperrors.ErrCSRFInvalid, logger)
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(header), []byte(session.CSRFToken)) != 1 {
			logger.Debug("csrf check failed: token mismatch")
			httputil.HandleErrorGin(c, apperrors.ErrCSRFInvalid, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
