// Package repository provides data persistence implementations for user entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/vaultfs/internal/database"
	"github.com/allisson/vaultfs/internal/user/domain"

	apperrors "github.com/allisson/vaultfs/internal/errors"
)

const userColumns = `id, name, handle, password, roles, encrypted_dek, dek_nonce, dek_salt,
			  dek_kek_version, quota_bytes, used_bytes, plan, is_active, created_at, updated_at,
			  last_password_change`

// PostgreSQLUserRepository handles user persistence for PostgreSQL.
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserRepository creates a new PostgreSQLUserRepository.
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{
		db: db,
	}
}

// Create inserts a new user.
func (r *PostgreSQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO users (id, name, handle, password, roles, encrypted_dek, dek_nonce, dek_salt,
			  dek_kek_version, quota_bytes, used_bytes, plan, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, true, NOW(), NOW())`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Handle,
		user.Password,
		pq.Array(user.Roles),
		user.EncryptedDek,
		user.DekNonce,
		user.DekSalt,
		user.DekKekVersion,
		user.QuotaBytes,
		user.Plan,
	)
	if err != nil {
		// Check for unique constraint violation (duplicate handle)
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrDuplicateHandle
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *PostgreSQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return r.scanUser(querier.QueryRowContext(ctx, query, id))
}

// GetByHandle retrieves an active user by handle.
func (r *PostgreSQLUserRepository) GetByHandle(ctx context.Context, handle string) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE handle = $1 AND is_active = true`

	return r.scanUser(querier.QueryRowContext(ctx, query, handle))
}

// UpdatePassword stores a new password verifier together with the rewrapped
// DEK, its nonce, the fresh derivation salt and the KEK version current at the
// rewrap. Stamps last_password_change.
func (r *PostgreSQLUserRepository) UpdatePassword(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users
			  SET password = $1,
				  encrypted_dek = $2,
				  dek_nonce = $3,
				  dek_salt = $4,
				  dek_kek_version = $5,
				  last_password_change = NOW(),
				  updated_at = NOW()
			  WHERE id = $6`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.Password,
		user.EncryptedDek,
		user.DekNonce,
		user.DekSalt,
		user.DekKekVersion,
		user.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update password")
	}
	return nil
}

// LockForUpdate reads a user's quota counters under a row-level exclusive
// lock. Must run inside a transaction; the lock serializes concurrent
// reservations for the same user until commit or rollback.
func (r *PostgreSQLUserRepository) LockForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (quotaBytes, usedBytes int64, err error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT quota_bytes, used_bytes FROM users WHERE id = $1 FOR UPDATE`

	err = querier.QueryRowContext(ctx, query, id).Scan(&quotaBytes, &usedBytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, domain.ErrUserNotFound
		}
		return 0, 0, apperrors.Wrap(err, "failed to lock user row")
	}
	return quotaBytes, usedBytes, nil
}

// AddUsedBytes increments used_bytes. Callers must hold the row lock taken by
// LockForUpdate in the same transaction and must have verified the quota.
func (r *PostgreSQLUserRepository) AddUsedBytes(ctx context.Context, id uuid.UUID, n int64) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET used_bytes = used_bytes + $1, updated_at = NOW() WHERE id = $2`

	if _, err := querier.ExecContext(ctx, query, n, id); err != nil {
		return apperrors.Wrap(err, "failed to add used bytes")
	}
	return nil
}

// SubtractUsedBytes decrements used_bytes, clamped at zero so the counter can
// never go negative regardless of replayed rollbacks.
func (r *PostgreSQLUserRepository) SubtractUsedBytes(ctx context.Context, id uuid.UUID, n int64) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET used_bytes = GREATEST(0, used_bytes - $1), updated_at = NOW() WHERE id = $2`

	if _, err := querier.ExecContext(ctx, query, n, id); err != nil {
		return apperrors.Wrap(err, "failed to subtract used bytes")
	}
	return nil
}

// UpdatePlan sets the plan tag and its quota in one statement. The update is
// applied even when it leaves used_bytes above the new quota; the over-quota
// state only blocks subsequent reservations.
func (r *PostgreSQLUserRepository) UpdatePlan(
	ctx context.Context,
	id uuid.UUID,
	plan domain.Plan,
	quotaBytes int64,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET plan = $1, quota_bytes = $2, updated_at = NOW() WHERE id = $3`

	if _, err := querier.ExecContext(ctx, query, plan, quotaBytes, id); err != nil {
		return apperrors.Wrap(err, "failed to update plan")
	}
	return nil
}

// SetUsedBytes overwrites used_bytes with a recomputed value.
func (r *PostgreSQLUserRepository) SetUsedBytes(ctx context.Context, id uuid.UUID, n int64) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET used_bytes = $1, updated_at = NOW() WHERE id = $2`

	if _, err := querier.ExecContext(ctx, query, n, id); err != nil {
		return apperrors.Wrap(err, "failed to set used bytes")
	}
	return nil
}

// scanUser scans a full user row, translating sql.ErrNoRows to ErrUserNotFound.
func (r *PostgreSQLUserRepository) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Handle,
		&user.Password,
		pq.Array(&user.Roles),
		&user.EncryptedDek,
		&user.DekNonce,
		&user.DekSalt,
		&user.DekKekVersion,
		&user.QuotaBytes,
		&user.UsedBytes,
		&user.Plan,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastPasswordChange,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user")
	}
	return &user, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
