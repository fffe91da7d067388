package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
	"github.com/allisson/vaultfs/internal/testutil"
)

func kekRows(version int, active, deprecated bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"version", "algorithm", "encrypted_key", "nonce",
		"is_active", "is_deprecated", "created_at", "deprecated_at",
	}).AddRow(
		version, string(cryptoDomain.AESGCM), []byte("encrypted-kek"), []byte("nonce-12byte"),
		active, deprecated, time.Now().UTC(), nil,
	)
}

func TestPostgreSQLKekRepository_Create(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLKekRepository(db)

	kek := &cryptoDomain.Kek{
		Version:      1,
		Algorithm:    cryptoDomain.AESGCM,
		EncryptedKey: []byte("encrypted-kek"),
		Nonce:        []byte("nonce-12byte"),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO keks`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Create(context.Background(), kek))
}

func TestPostgreSQLKekRepository_GetActive(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLKekRepository(db)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`WHERE is_active = true AND is_deprecated = false`).
			WillReturnRows(kekRows(2, true, false))

		kek, err := repo.GetActive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, kek.Version)
		assert.True(t, kek.IsActive)
	})

	t.Run("first boot has none", func(t *testing.T) {
		mock.ExpectQuery(`WHERE is_active = true AND is_deprecated = false`).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))

		_, err := repo.GetActive(context.Background())
		assert.ErrorIs(t, err, cryptoDomain.ErrKekNotFound)
	})
}

func TestPostgreSQLKekRepository_GetByVersion(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLKekRepository(db)

	mock.ExpectQuery(`FROM keks WHERE version = \$1`).
		WithArgs(1).
		WillReturnRows(kekRows(1, false, true))

	kek, err := repo.GetByVersion(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, kek.Version)
	assert.True(t, kek.IsDeprecated)
}

func TestPostgreSQLKekRepository_Deprecate(t *testing.T) {
	db, mock := testutil.NewSQLMock(t)
	repo := NewPostgreSQLKekRepository(db)

	mock.ExpectExec(`SET is_active = false, is_deprecated = true, deprecated_at = NOW\(\)`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Deprecate(context.Background(), 1))
}
