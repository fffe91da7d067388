// Package repository implements data persistence for the folder tree.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/vaultfs/internal/database"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	foldersDomain "github.com/allisson/vaultfs/internal/folders/domain"
)

const folderColumns = `id, user_id, parent_folder_id, name, description, is_deleted, deleted_at,
			  created_at, updated_at`

// PostgreSQLFolderRepository handles folder persistence for PostgreSQL.
type PostgreSQLFolderRepository struct {
	db *sql.DB
}

// NewPostgreSQLFolderRepository creates a new PostgreSQL folder repository.
func NewPostgreSQLFolderRepository(db *sql.DB) *PostgreSQLFolderRepository {
	return &PostgreSQLFolderRepository{db: db}
}

// Create inserts a new folder.
func (p *PostgreSQLFolderRepository) Create(ctx context.Context, folder *foldersDomain.Folder) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO folders (id, user_id, parent_folder_id, name, description, is_deleted,
			  created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, false, NOW(), NOW())`

	_, err := querier.ExecContext(
		ctx,
		query,
		folder.ID,
		folder.UserID,
		folder.ParentFolderID,
		folder.Name,
		folder.Description,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create folder")
	}
	return nil
}

// GetByIDForUser retrieves a non-deleted folder owned by the user.
func (p *PostgreSQLFolderRepository) GetByIDForUser(
	ctx context.Context,
	id, userID uuid.UUID,
) (*foldersDomain.Folder, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + folderColumns + ` FROM folders
			  WHERE id = $1 AND user_id = $2 AND is_deleted = false`

	var folder foldersDomain.Folder
	err := querier.QueryRowContext(ctx, query, id, userID).Scan(
		&folder.ID,
		&folder.UserID,
		&folder.ParentFolderID,
		&folder.Name,
		&folder.Description,
		&folder.IsDeleted,
		&folder.DeletedAt,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, foldersDomain.ErrFolderNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get folder")
	}
	return &folder, nil
}

// Exists reports whether a non-deleted folder is owned by the user.
func (p *PostgreSQLFolderRepository) Exists(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS (
				  SELECT 1 FROM folders
				  WHERE id = $1 AND user_id = $2 AND is_deleted = false
			  )`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check folder")
	}
	return exists, nil
}

// ListChildren lists the user's non-deleted folders under one parent.
// A nil parentID selects root folders.
func (p *PostgreSQLFolderRepository) ListChildren(
	ctx context.Context,
	userID uuid.UUID,
	parentID *uuid.UUID,
) ([]*foldersDomain.Folder, error) {
	querier := database.GetTx(ctx, p.db)

	var rows *sql.Rows
	var err error
	if parentID == nil {
		query := `SELECT ` + folderColumns + ` FROM folders
				  WHERE user_id = $1 AND parent_folder_id IS NULL AND is_deleted = false
				  ORDER BY name ASC`
		rows, err = querier.QueryContext(ctx, query, userID)
	} else {
		query := `SELECT ` + folderColumns + ` FROM folders
				  WHERE user_id = $1 AND parent_folder_id = $2 AND is_deleted = false
				  ORDER BY name ASC`
		rows, err = querier.QueryContext(ctx, query, userID, *parentID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list folders")
	}
	defer rows.Close()

	var folders []*foldersDomain.Folder
	for rows.Next() {
		var folder foldersDomain.Folder
		err := rows.Scan(
			&folder.ID,
			&folder.UserID,
			&folder.ParentFolderID,
			&folder.Name,
			&folder.Description,
			&folder.IsDeleted,
			&folder.DeletedAt,
			&folder.CreatedAt,
			&folder.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan folder")
		}
		folders = append(folders, &folder)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate folders")
	}
	return folders, nil
}

// DescendantIDs returns the ids of a folder and every folder below it,
// walking parent_folder_id with a recursive CTE.
func (p *PostgreSQLFolderRepository) DescendantIDs(
	ctx context.Context,
	id, userID uuid.UUID,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, p.db)

	query := `WITH RECURSIVE descendants AS (
				  SELECT id FROM folders
				  WHERE id = $1 AND user_id = $2 AND is_deleted = false
				  UNION ALL
				  SELECT f.id FROM folders f
				  JOIN descendants d ON f.parent_folder_id = d.id
				  WHERE f.user_id = $2 AND f.is_deleted = false
			  )
			  SELECT id FROM descendants`

	rows, err := querier.QueryContext(ctx, query, id, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to collect descendants")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var folderID uuid.UUID
		if err := rows.Scan(&folderID); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan descendant id")
		}
		ids = append(ids, folderID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate descendants")
	}
	return ids, nil
}

// SoftDeleteMany marks a set of folders deleted.
func (p *PostgreSQLFolderRepository) SoftDeleteMany(
	ctx context.Context,
	userID uuid.UUID,
	ids []uuid.UUID,
) error {
	if len(ids) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `UPDATE folders
			  SET is_deleted = true, deleted_at = NOW(), updated_at = NOW()
			  WHERE user_id = $1 AND id = ANY($2)`

	if _, err := querier.ExecContext(ctx, query, userID, pq.Array(ids)); err != nil {
		return apperrors.Wrap(err, "failed to soft delete folders")
	}
	return nil
}

// Stats returns aggregate numbers for a folder's direct contents.
func (p *PostgreSQLFolderRepository) Stats(
	ctx context.Context,
	id, userID uuid.UUID,
) (fileCount, subfolderCount, totalSize int64, err error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT
				  (SELECT COUNT(*) FROM files
				   WHERE folder_id = $1 AND user_id = $2 AND is_deleted = false),
				  (SELECT COUNT(*) FROM folders
				   WHERE parent_folder_id = $1 AND user_id = $2 AND is_deleted = false),
				  (SELECT COALESCE(SUM(file_size), 0) FROM files
				   WHERE folder_id = $1 AND user_id = $2 AND is_deleted = false)`

	err = querier.QueryRowContext(ctx, query, id, userID).Scan(&fileCount, &subfolderCount, &totalSize)
	if err != nil {
		return 0, 0, 0, apperrors.Wrap(err, "failed to get folder stats")
	}
	return fileCount, subfolderCount, totalSize, nil
}
