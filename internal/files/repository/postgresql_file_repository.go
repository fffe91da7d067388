// Package repository implements data persistence for file records and daily
// upload statistics.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/vaultfs/internal/database"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
)

const fileColumns = `id, user_id, folder_id, original_filename, file_size, mime_type, encrypted_dek,
			  dek_nonce, nonce, kek_version, upload_status, checksum_sha256, chunks_metadata, total_chunks,
			  access_count, is_deleted, deleted_at, uploaded_at, created_at, updated_at`

// PostgreSQLFileRepository handles file record persistence for PostgreSQL.
type PostgreSQLFileRepository struct {
	db *sql.DB
}

// NewPostgreSQLFileRepository creates a new PostgreSQL file repository.
func NewPostgreSQLFileRepository(db *sql.DB) *PostgreSQLFileRepository {
	return &PostgreSQLFileRepository{db: db}
}

// Create inserts a new pending file record.
func (p *PostgreSQLFileRepository) Create(ctx context.Context, file *filesDomain.File) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO files (id, user_id, folder_id, original_filename, file_size, mime_type,
			  upload_status, total_chunks, access_count, is_deleted, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, false, NOW(), NOW())`

	_, err := querier.ExecContext(
		ctx,
		query,
		file.ID,
		file.UserID,
		file.FolderID,
		file.OriginalFilename,
		file.FileSize,
		file.MimeType,
		file.UploadStatus,
		file.TotalChunks,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create file")
	}
	return nil
}

// GetByID retrieves a file by id regardless of owner or deletion state.
// Used by the cleanup worker; request paths go through GetByIDForUser.
func (p *PostgreSQLFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*filesDomain.File, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	return p.scanFile(querier.QueryRowContext(ctx, query, id))
}

// GetByIDForUser retrieves a non-deleted file owned by the user.
// Returns ErrFileNotFound for unknown ids and for files owned by others.
func (p *PostgreSQLFileRepository) GetByIDForUser(
	ctx context.Context,
	id, userID uuid.UUID,
) (*filesDomain.File, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + fileColumns + ` FROM files
			  WHERE id = $1 AND user_id = $2 AND is_deleted = false`

	return p.scanFile(querier.QueryRowContext(ctx, query, id, userID))
}

// MarkCompleted performs the pending→completed transition, writing the crypto
// fields and checksum in the same statement. The WHERE clause on
// upload_status makes the transition the serialization point for concurrent
// finalize calls: exactly one caller flips the row, the rest see zero rows.
func (p *PostgreSQLFileRepository) MarkCompleted(ctx context.Context, file *filesDomain.File) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE files
			  SET upload_status = $1,
				  encrypted_dek = $2,
				  dek_nonce = $3,
				  nonce = $4,
				  kek_version = $5,
				  checksum_sha256 = $6,
				  chunks_metadata = $7,
				  total_chunks = $8,
				  uploaded_at = NOW(),
				  updated_at = NOW()
			  WHERE id = $9 AND user_id = $10 AND upload_status = $11`

	result, err := querier.ExecContext(
		ctx,
		query,
		filesDomain.UploadCompleted,
		file.EncryptedDek,
		file.DekNonce,
		file.Nonce,
		file.KekVersion,
		file.ChecksumSHA256,
		file.ChunksMetadata,
		file.TotalChunks,
		file.ID,
		file.UserID,
		filesDomain.UploadPending,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark file completed")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to count completed rows")
	}
	return rows == 1, nil
}

// MarkFailed performs the pending→failed transition. Returns whether this
// call flipped the row; a false result means the upload was already finalized,
// cancelled or reclaimed.
func (p *PostgreSQLFileRepository) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE files
			  SET upload_status = $1, updated_at = NOW()
			  WHERE id = $2 AND upload_status = $3`

	result, err := querier.ExecContext(ctx, query, filesDomain.UploadFailed, id, filesDomain.UploadPending)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark file failed")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to count failed rows")
	}
	return rows == 1, nil
}

// SoftDelete marks a file deleted and returns its size for quota release.
// The is_deleted guard makes repeated deletes observable to the caller.
func (p *PostgreSQLFileRepository) SoftDelete(
	ctx context.Context,
	id, userID uuid.UUID,
) (int64, bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE files
			  SET is_deleted = true, deleted_at = NOW(), updated_at = NOW()
			  WHERE id = $1 AND user_id = $2 AND is_deleted = false
			  RETURNING file_size`

	var size int64
	err := querier.QueryRowContext(ctx, query, id, userID).Scan(&size)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, apperrors.Wrap(err, "failed to soft delete file")
	}
	return size, true, nil
}

// ListByUser lists the user's non-deleted files, newest first.
func (p *PostgreSQLFileRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int64,
) ([]*filesDomain.File, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + fileColumns + ` FROM files
			  WHERE user_id = $1 AND is_deleted = false
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list files")
	}
	defer rows.Close()

	return p.collectFiles(rows)
}

// ListByFolder lists the user's non-deleted files in one folder, whatever
// their upload status.
// A nil folderID selects root-level files.
func (p *PostgreSQLFileRepository) ListByFolder(
	ctx context.Context,
	userID uuid.UUID,
	folderID *uuid.UUID,
) ([]*filesDomain.File, error) {
	querier := database.GetTx(ctx, p.db)

	var rows *sql.Rows
	var err error
	if folderID == nil {
		query := `SELECT ` + fileColumns + ` FROM files
				  WHERE user_id = $1 AND folder_id IS NULL AND is_deleted = false
				  ORDER BY created_at DESC`
		rows, err = querier.QueryContext(ctx, query, userID)
	} else {
		query := `SELECT ` + fileColumns + ` FROM files
				  WHERE user_id = $1 AND folder_id = $2 AND is_deleted = false
				  ORDER BY created_at DESC`
		rows, err = querier.QueryContext(ctx, query, userID, *folderID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list folder files")
	}
	defer rows.Close()

	return p.collectFiles(rows)
}

// IncrementAccessCount bumps the download counter.
func (p *PostgreSQLFileRepository) IncrementAccessCount(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE files SET access_count = access_count + 1, updated_at = NOW() WHERE id = $1`

	if _, err := querier.ExecContext(ctx, query, id); err != nil {
		return apperrors.Wrap(err, "failed to increment access count")
	}
	return nil
}

// SumActiveSizes sums file_size over the user's non-deleted completed files.
func (p *PostgreSQLFileRepository) SumActiveSizes(ctx context.Context, userID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COALESCE(SUM(file_size), 0) FROM files
			  WHERE user_id = $1 AND upload_status = $2 AND is_deleted = false`

	var sum int64
	err := querier.QueryRowContext(ctx, query, userID, filesDomain.UploadCompleted).Scan(&sum)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to sum file sizes")
	}
	return sum, nil
}

// ListExpiredPending returns pending uploads older than the cutoff, driven by
// the (upload_status, created_at) index.
func (p *PostgreSQLFileRepository) ListExpiredPending(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*filesDomain.File, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + fileColumns + ` FROM files
			  WHERE upload_status = $1 AND created_at < $2
			  ORDER BY created_at ASC
			  LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, filesDomain.UploadPending, cutoff, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expired uploads")
	}
	defer rows.Close()

	return p.collectFiles(rows)
}

// ReparentToRoot clears folder_id for files in the given folders, moving them
// to the root when their folder is soft-deleted.
func (p *PostgreSQLFileRepository) ReparentToRoot(
	ctx context.Context,
	userID uuid.UUID,
	folderIDs []uuid.UUID,
) error {
	if len(folderIDs) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `UPDATE files SET folder_id = NULL, updated_at = NOW()
			  WHERE user_id = $1 AND folder_id = ANY($2)`

	if _, err := querier.ExecContext(ctx, query, userID, pq.Array(folderIDs)); err != nil {
		return apperrors.Wrap(err, "failed to reparent files")
	}
	return nil
}

// collectFiles scans all rows into file records.
func (p *PostgreSQLFileRepository) collectFiles(rows *sql.Rows) ([]*filesDomain.File, error) {
	var files []*filesDomain.File
	for rows.Next() {
		file, err := scanFileColumns(rows.Scan)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate files")
	}
	return files, nil
}

// scanFile scans a single file row, translating sql.ErrNoRows to ErrFileNotFound.
func (p *PostgreSQLFileRepository) scanFile(row *sql.Row) (*filesDomain.File, error) {
	file, err := scanFileColumns(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, filesDomain.ErrFileNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get file")
	}
	return file, nil
}

// scanFileColumns scans the fileColumns projection through any Scan func.
func scanFileColumns(scan func(dest ...any) error) (*filesDomain.File, error) {
	var file filesDomain.File
	var mimeType sql.NullString
	var checksum sql.NullString

	err := scan(
		&file.ID,
		&file.UserID,
		&file.FolderID,
		&file.OriginalFilename,
		&file.FileSize,
		&mimeType,
		&file.EncryptedDek,
		&file.DekNonce,
		&file.Nonce,
		&file.KekVersion,
		&file.UploadStatus,
		&checksum,
		&file.ChunksMetadata,
		&file.TotalChunks,
		&file.AccessCount,
		&file.IsDeleted,
		&file.DeletedAt,
		&file.UploadedAt,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	file.MimeType = mimeType.String
	file.ChecksumSHA256 = checksum.String
	return &file, nil
}
