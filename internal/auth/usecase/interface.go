// Package usecase implements authentication business logic: registration,
// login, logout, password change and audit recording.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
)

// AuditLogRepository defines audit event persistence operations.
type AuditLogRepository interface {
	Create(ctx context.Context, event *authDomain.AuditLog) error
}

// AuditEvent carries the request-scoped fields of a security event.
type AuditEvent struct {
	UserID       *uuid.UUID
	Action       string
	IP           string
	UserAgent    string
	ResourceType string
	ResourceID   string
	Status       string
	ErrorMessage string
}

// AuditLogUseCase records security events.
type AuditLogUseCase interface {
	// Record writes an audit event. Failures are swallowed after internal
	// logging so the calling operation is never failed by auditing.
	Record(ctx context.Context, event AuditEvent)
}

// RegisterInput contains the input data for user registration.
type RegisterInput struct {
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// LoginInput contains the input data for login.
type LoginInput struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// ChangePasswordInput contains the input data for a password change.
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// LoginResult carries the minted session after a successful login.
type LoginResult struct {
	Session *authDomain.Session
}

// AuthUseCase defines authentication business operations.
type AuthUseCase interface {
	Register(ctx context.Context, input RegisterInput) (uuid.UUID, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, token string)
	ChangePassword(ctx context.Context, token string, input ChangePasswordInput) error

	// SessionTTL exposes the configured session lifetime for cookie max-age.
	SessionTTL() time.Duration
}
