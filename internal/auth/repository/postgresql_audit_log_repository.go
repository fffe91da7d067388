// Package repository implements data persistence for authentication entities.
package repository

import (
	"context"
	"database/sql"
	"time"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
	"github.com/allisson/vaultfs/internal/database"
	apperrors "github.com/allisson/vaultfs/internal/errors"
)

// PostgreSQLAuditLogRepository implements append-only audit event persistence
// for PostgreSQL. There is deliberately no update method: request handlers
// only ever insert rows, and DeleteOlderThan exists for operator pruning.
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL audit log repository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}

// Create inserts a new audit event.
func (p *PostgreSQLAuditLogRepository) Create(ctx context.Context, event *authDomain.AuditLog) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO audit_logs (id, user_id, action, ip, user_agent, resource_type, resource_id,
			  status, error_message, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.UserID,
		event.Action,
		event.IP,
		event.UserAgent,
		event.ResourceType,
		event.ResourceID,
		event.Status,
		event.ErrorMessage,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// DeleteOlderThan removes audit events older than the cutoff and returns the
// number of rows deleted. Used by operator tooling, never by request handlers.
func (p *PostgreSQLAuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit logs")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted audit logs")
	}
	return rows, nil
}
