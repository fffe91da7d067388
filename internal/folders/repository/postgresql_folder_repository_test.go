package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foldersDomain "github.com/allisson/vaultfs/internal/folders/domain"
	"github.com/allisson/vaultfs/internal/testutil"
)

func folderRows(folder *foldersDomain.Folder) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "user_id", "parent_folder_id", "name", "description",
		"is_deleted", "deleted_at", "created_at", "updated_at",
	}).AddRow(
		folder.ID, folder.UserID, folder.ParentFolderID, folder.Name, folder.Description,
		false, nil, now, now,
	)
}

func TestPostgreSQLFolderRepository_Create(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLFolderRepository(db)

	folder := &foldersDomain.Folder{
		ID:     uuid.Must(uuid.NewV7()),
		UserID: uuid.Must(uuid.NewV7()),
		Name:   "Docs",
	}

	mock.ExpectExec(`INSERT INTO folders`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Create(context.Background(), folder))
}

func TestPostgreSQLFolderRepository_GetByIDForUser(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLFolderRepository(db)

	folder := &foldersDomain.Folder{
		ID:     uuid.Must(uuid.NewV7()),
		UserID: uuid.Must(uuid.NewV7()),
		Name:   "Docs",
	}

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`WHERE id = \$1 AND user_id = \$2 AND is_deleted = false`).
			WithArgs(folder.ID, folder.UserID).
			WillReturnRows(folderRows(folder))

		got, err := repo.GetByIDForUser(context.Background(), folder.ID, folder.UserID)
		require.NoError(t, err)
		assert.Equal(t, "Docs", got.Name)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`WHERE id = \$1 AND user_id = \$2 AND is_deleted = false`).
			WithArgs(folder.ID, folder.UserID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByIDForUser(context.Background(), folder.ID, folder.UserID)
		assert.ErrorIs(t, err, foldersDomain.ErrFolderNotFound)
	})
}

func TestPostgreSQLFolderRepository_Exists(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLFolderRepository(db)
	folderID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(folderID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), folderID, userID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgreSQLFolderRepository_DescendantIDs(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLFolderRepository(db)
	rootID := uuid.Must(uuid.NewV7())
	childID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(`WITH RECURSIVE descendants`).
		WithArgs(rootID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(rootID).AddRow(childID))

	ids, err := repo.DescendantIDs(context.Background(), rootID, userID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{rootID, childID}, ids)
}

func TestPostgreSQLFolderRepository_Stats(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLFolderRepository(db)
	folderID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(`SELECT`).
		WithArgs(folderID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"files", "subfolders", "size"}).AddRow(3, 2, 9000))

	files, subfolders, size, err := repo.Stats(context.Background(), folderID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), files)
	assert.Equal(t, int64(2), subfolders)
	assert.Equal(t, int64(9000), size)
}
