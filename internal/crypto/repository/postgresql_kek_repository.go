// Package repository implements data persistence for cryptographic key management.
//
// KEK records are keyed by an integer version. Exactly one record is active
// and not deprecated at any time; this invariant is maintained by running
// rotation inside a transaction via database.TxManager.
package repository

import (
	"context"
	"database/sql"
	"errors"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
	"github.com/allisson/vaultfs/internal/database"
	apperrors "github.com/allisson/vaultfs/internal/errors"
)

// PostgreSQLKekRepository implements KEK persistence for PostgreSQL.
// Uses BYTEA for key material and supports transaction context via database.GetTx().
type PostgreSQLKekRepository struct {
	db *sql.DB
}

// NewPostgreSQLKekRepository creates a new PostgreSQL KEK repository.
func NewPostgreSQLKekRepository(db *sql.DB) *PostgreSQLKekRepository {
	return &PostgreSQLKekRepository{db: db}
}

// Create inserts a new KEK record.
func (p *PostgreSQLKekRepository) Create(ctx context.Context, kek *cryptoDomain.Kek) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO keks (version, algorithm, encrypted_key, nonce, is_active, is_deprecated, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		kek.Version,
		kek.Algorithm,
		kek.EncryptedKey,
		kek.Nonce,
		kek.IsActive,
		kek.IsDeprecated,
		kek.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create kek")
	}
	return nil
}

// GetActive retrieves the single active, non-deprecated KEK.
// Returns ErrKekNotFound when no active KEK exists yet (first boot).
func (p *PostgreSQLKekRepository) GetActive(ctx context.Context) (*cryptoDomain.Kek, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT version, algorithm, encrypted_key, nonce, is_active, is_deprecated, created_at, deprecated_at
			  FROM keks WHERE is_active = true AND is_deprecated = false`

	return p.scanKek(querier.QueryRowContext(ctx, query))
}

// GetByVersion retrieves a KEK by its version, active or deprecated.
func (p *PostgreSQLKekRepository) GetByVersion(ctx context.Context, version int) (*cryptoDomain.Kek, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT version, algorithm, encrypted_key, nonce, is_active, is_deprecated, created_at, deprecated_at
			  FROM keks WHERE version = $1`

	return p.scanKek(querier.QueryRowContext(ctx, query, version))
}

// List retrieves all KEKs ordered by version descending (newest first).
func (p *PostgreSQLKekRepository) List(ctx context.Context) ([]*cryptoDomain.Kek, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT version, algorithm, encrypted_key, nonce, is_active, is_deprecated, created_at, deprecated_at
			  FROM keks ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list keks")
	}
	defer rows.Close()

	var keks []*cryptoDomain.Kek
	for rows.Next() {
		var kek cryptoDomain.Kek
		err := rows.Scan(
			&kek.Version,
			&kek.Algorithm,
			&kek.EncryptedKey,
			&kek.Nonce,
			&kek.IsActive,
			&kek.IsDeprecated,
			&kek.CreatedAt,
			&kek.DeprecatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan kek")
		}
		keks = append(keks, &kek)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate keks")
	}

	return keks, nil
}

// Deprecate marks a KEK as rotated out: is_active=false, is_deprecated=true,
// deprecated_at stamped. The KEK remains available for decrypting envelopes
// written under it.
func (p *PostgreSQLKekRepository) Deprecate(ctx context.Context, version int) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE keks
			  SET is_active = false, is_deprecated = true, deprecated_at = NOW()
			  WHERE version = $1`

	_, err := querier.ExecContext(ctx, query, version)
	if err != nil {
		return apperrors.Wrap(err, "failed to deprecate kek")
	}
	return nil
}

// scanKek scans a single KEK row, translating sql.ErrNoRows to ErrKekNotFound.
func (p *PostgreSQLKekRepository) scanKek(row *sql.Row) (*cryptoDomain.Kek, error) {
	var kek cryptoDomain.Kek
	err := row.Scan(
		&kek.Version,
		&kek.Algorithm,
		&kek.EncryptedKey,
		&kek.Nonce,
		&kek.IsActive,
		&kek.IsDeprecated,
		&kek.CreatedAt,
		&kek.DeprecatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrKekNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get kek")
	}
	return &kek, nil
}
