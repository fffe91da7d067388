package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
)

// auditWriteTimeout bounds the audit insert so a slow database can never
// stall the request that emitted the event.
const auditWriteTimeout = 2 * time.Second

// auditLogUseCase implements AuditLogUseCase.
type auditLogUseCase struct {
	auditLogRepo AuditLogRepository
	logger       *slog.Logger
}

// NewAuditLogUseCase creates a new AuditLogUseCase.
func NewAuditLogUseCase(auditLogRepo AuditLogRepository, logger *slog.Logger) AuditLogUseCase {
	return &auditLogUseCase{
		auditLogRepo: auditLogRepo,
		logger:       logger,
	}
}

// Record writes an audit event. The write is fire-and-forget: failures are
// logged internally and never propagate to the calling operation.
func (uc *auditLogUseCase) Record(ctx context.Context, event AuditEvent) {
	row := &authDomain.AuditLog{
		ID:           uuid.Must(uuid.NewV7()),
		UserID:       event.UserID,
		Action:       event.Action,
		IP:           event.IP,
		UserAgent:    event.UserAgent,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Status:       event.Status,
		ErrorMessage: event.ErrorMessage,
		CreatedAt:    time.Now().UTC(),
	}

	// Detach from the request context so a client disconnect does not cancel
	// the audit write, but keep it bounded.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := uc.auditLogRepo.Create(writeCtx, row); err != nil {
		uc.logger.Error("audit log write failed",
			slog.String("action", event.Action),
			slog.Any("error", err),
		)
	}
}
