package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions.
const (
	ActionRegister       = "auth.register"
	ActionLoginSuccess   = "auth.login.success"
	ActionLoginFailure   = "auth.login.failure"
	ActionLogout         = "auth.logout"
	ActionPasswordChange = "auth.password_change"
	ActionUploadFinalize = "files.upload.finalize"
	ActionFileDelete     = "files.delete"
	ActionFileDownload   = "files.download"
	ActionFolderDelete   = "folders.delete"
	ActionRateLimited    = "rate_limit.rejected"
	ActionIntegrity      = "integrity.failure"
)

// Audit statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// AuditLog is an append-only record of a security-relevant event.
// Writes are fire-and-forget from the request's perspective: a failed audit
// write is logged internally but never fails the user-visible operation.
type AuditLog struct {
	ID           uuid.UUID
	UserID       *uuid.UUID
	Action       string
	IP           string
	UserAgent    string
	ResourceType string
	ResourceID   string
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}
