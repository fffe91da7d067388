package usecase

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/vaultfs/internal/errors"
	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
)

func TestFileUseCase_Download(t *testing.T) {
	ctx := context.Background()
	content := []byte("the quick brown fox jumps over the lazy dog\n")

	t.Run("returns the original plaintext", func(t *testing.T) {
		fx := newUploadFixture(t, 1<<20)
		file := fx.uploadWhole(t, content)

		result, err := fx.files.Download(ctx, fx.userID, file.ID)
		require.NoError(t, err)

		plaintext, err := io.ReadAll(result.Reader)
		require.NoError(t, err)
		assert.Equal(t, content, plaintext)
		assert.Equal(t, file.OriginalFilename, result.File.OriginalFilename)
	})

	t.Run("increments the access counter", func(t *testing.T) {
		fx := newUploadFixture(t, 1<<20)
		file := fx.uploadWhole(t, content)

		_, err := fx.files.Download(ctx, fx.userID, file.ID)
		require.NoError(t, err)
		_, err = fx.files.Download(ctx, fx.userID, file.ID)
		require.NoError(t, err)

		stored, err := fx.fileRepo.GetByID(ctx, file.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.AccessCount)
	})

	t.Run("unknown file", func(t *testing.T) {
		fx := newUploadFixture(t, 1<<20)

		_, err := fx.files.Download(ctx, fx.userID, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("another user cannot download", func(t *testing.T) {
		fx := newUploadFixture(t, 1<<20)
		file := fx.uploadWhole(t, content)

		_, err := fx.files.Download(ctx, uuid.Must(uuid.NewV7()), file.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("pending upload is not downloadable", func(t *testing.T) {
		fx := newUploadFixture(t, 1<<20)
		result, err := fx.upload.Init(ctx, fx.userID, InitUploadInput{
			FileName: "pending.bin",
			FileSize: 8,
		})
		require.NoError(t, err)

		_, err = fx.files.Download(ctx, fx.userID, result.UploadID)
		assert.ErrorIs(t, err, apperrors.ErrWrongState)
	})

	t.Run("tampered ciphertext is rejected as an integrity failure", func(t *testing.T) {
		fx := newUploadFixture(t, 1<<20)
		file := fx.uploadWhole(t, content)

		ciphertext, err := fx.blobs.Read(fx.userID, file.ID)
		require.NoError(t, err)
		ciphertext[0] ^= 0x01
		require.NoError(t, fx.blobs.Write(fx.userID, file.ID, ciphertext))

		_, err = fx.files.Download(ctx, fx.userID, file.ID)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)
	})

	t.Run("download does not depend on the password-derived key", func(t *testing.T) {
		fx := newUploadFixture(t, 1<<20)
		file := fx.uploadWhole(t, content)

		// A password change rewraps the user-row DEK only; the per-file
		// envelope rides on the KEK and is untouched. Download takes no PDK,
		// so nothing else needs to move.
		result, err := fx.files.Download(ctx, fx.userID, file.ID)
		require.NoError(t, err)

		plaintext, err := io.ReadAll(result.Reader)
		require.NoError(t, err)
		assert.Equal(t, content, plaintext)
	})
}

func TestFileUseCase_Delete(t *testing.T) {
	ctx := context.Background()
	content := []byte("bytes to delete")

	t.Run("soft delete releases the quota", func(t *testing.T) {
		fx := newUploadFixture(t, 1<<20)
		file := fx.uploadWhole(t, content)
		require.Equal(t, int64(len(content)), fx.quota.used)

		size, err := fx.files.Delete(ctx, fx.userID, file.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), size)
		assert.Equal(t, int64(0), fx.quota.used)

		// Gone from listings and downloads.
		_, err = fx.files.Download(ctx, fx.userID, file.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("double delete reports not found", func(t *testing.T) {
		fx := newUploadFixture(t, 1<<20)
		file := fx.uploadWhole(t, content)

		_, err := fx.files.Delete(ctx, fx.userID, file.ID)
		require.NoError(t, err)

		_, err = fx.files.Delete(ctx, fx.userID, file.ID)
		assert.ErrorIs(t, err, filesDomain.ErrFileNotFound)

		// The quota was released exactly once.
		assert.Equal(t, []int64{int64(len(content))}, fx.quota.rollbacks)
	})
}

func TestFileUseCase_List(t *testing.T) {
	ctx := context.Background()
	fx := newUploadFixture(t, 1<<20)

	fx.uploadWhole(t, []byte("first file"))
	fx.uploadWhole(t, []byte("second file"))

	files, err := fx.files.List(ctx, fx.userID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	t.Run("bogus paging is normalized", func(t *testing.T) {
		files, err := fx.files.List(ctx, fx.userID, -1, -10)
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})
}
