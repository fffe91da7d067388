package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
	"github.com/allisson/vaultfs/internal/auth/http/dto"
	authUseCase "github.com/allisson/vaultfs/internal/auth/usecase"
	"github.com/allisson/vaultfs/internal/httputil"
)

// AuthHandler handles HTTP requests for registration, login, logout and
// password change.
type AuthHandler struct {
	authUseCase authUseCase.AuthUseCase
	auditLog    authUseCase.AuditLogUseCase
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler with required dependencies.
func NewAuthHandler(
	auth authUseCase.AuthUseCase,
	auditLog authUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authUseCase: auth,
		auditLog:    auditLog,
		logger:      logger,
	}
}

// RegisterHandler creates a new user and issues their wrapped DEK.
// POST /api/auth/register - Returns 201 Created.
func (h *AuthHandler) RegisterHandler(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	userID, err := h.authUseCase.Register(c.Request.Context(), authUseCase.RegisterInput{
		Name:     req.Name,
		Handle:   req.Handle,
		Password: req.Password,
	})
	if err != nil {
		h.audit(c, nil, authDomain.ActionRegister, authDomain.StatusFailure, err.Error())
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, &userID, authDomain.ActionRegister, authDomain.StatusSuccess, "")

	c.JSON(http.StatusCreated, dto.RegisterResponse{
		UserID:  userID.String(),
		Message: "Registration successful",
	})
}

// LoginHandler verifies credentials, creates a session and returns the CSRF token.
// POST /api/auth/login - Returns 200 OK with cookies set.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	result, err := h.authUseCase.Login(c.Request.Context(), authUseCase.LoginInput{
		Handle:   req.Handle,
		Password: req.Password,
	})
	if err != nil {
		h.audit(c, nil, authDomain.ActionLoginFailure, authDomain.StatusFailure, err.Error())
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	session := result.Session
	maxAge := int(h.authUseCase.SessionTTL().Seconds())
	h.setSessionCookies(c, session.Token, session.CSRFToken, maxAge)

	h.audit(c, &session.UserID, authDomain.ActionLoginSuccess, authDomain.StatusSuccess, "")

	c.JSON(http.StatusOK, dto.LoginResponse{
		CSRFToken: session.CSRFToken,
		Message:   "Login successful",
	})
}

// LogoutHandler destroys the session and clears cookies.
// POST /api/auth/logout - Requires auth + CSRF.
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	session, ok := GetSession(c.Request.Context())
	if !ok {
		c.JSON(http.StatusOK, dto.MessageResponse{Message: "Logout successful"})
		return
	}

	h.authUseCase.Logout(c.Request.Context(), session.Token)
	h.setSessionCookies(c, "", "", -1)

	h.audit(c, &session.UserID, authDomain.ActionLogout, authDomain.StatusSuccess, "")

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Logout successful"})
}

// ChangePasswordHandler rewraps the DEK under the new password.
// POST /api/auth/change-password - Requires auth + CSRF, rate limited.
func (h *AuthHandler) ChangePasswordHandler(c *gin.Context) {
	session, ok := GetSession(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, authDomain.ErrSessionNotFound, h.logger)
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	err := h.authUseCase.ChangePassword(c.Request.Context(), session.Token, authUseCase.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.audit(c, &session.UserID, authDomain.ActionPasswordChange, authDomain.StatusFailure, err.Error())
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, &session.UserID, authDomain.ActionPasswordChange, authDomain.StatusSuccess, "")

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password changed"})
}

// setSessionCookies writes the session and CSRF cookies. The session cookie
// is HttpOnly; the CSRF cookie is readable by the page script so it can echo
// the value in the X-CSRF-Token header.
func (h *AuthHandler) setSessionCookies(c *gin.Context, sessionToken, csrfToken string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, sessionToken, maxAge, "/", "", true, true)
	c.SetCookie(CSRFCookie, csrfToken, maxAge, "/", "", true, false)
}

// audit emits a security event for an auth operation.
func (h *AuthHandler) audit(c *gin.Context, userID *uuid.UUID, action, status, errMsg string) {
	h.auditLog.Record(c.Request.Context(), authUseCase.AuditEvent{
		UserID:       userID,
		Action:       action,
		IP:           c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		ResourceType: "user",
		Status:       status,
		ErrorMessage: errMsg,
	})
}
