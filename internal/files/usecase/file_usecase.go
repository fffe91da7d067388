package usecase

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
	cryptoService "github.com/allisson/vaultfs/internal/crypto/service"
	cryptoUseCase "github.com/allisson/vaultfs/internal/crypto/usecase"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
	"github.com/allisson/vaultfs/internal/files/storage"
	userUsecase "github.com/allisson/vaultfs/internal/user/usecase"
)

// fileUseCase implements FileUseCase.
//
// Download routes through the version recorded on the file: the per-file DEK
// envelope is unwrapped with that KEK, then the body is AEAD-decrypted. The
// stored SHA-256 checksum is not re-verified here; the AEAD tag already
// rejects any ciphertext tampering, and the checksum stays available for
// operator-side integrity sweeps.
type fileUseCase struct {
	fileRepo    FileRepository
	quota       userUsecase.QuotaUseCase
	keyManager  cryptoService.KeyManager
	aeadManager cryptoService.AEADManager
	kekUseCase  cryptoUseCase.KekUseCase
	blobs       *storage.BlobStore
	computePool *semaphore.Weighted
	algorithm   cryptoDomain.Algorithm
	logger      *slog.Logger
}

// NewFileUseCase creates a new FileUseCase.
func NewFileUseCase(
	fileRepo FileRepository,
	quota userUsecase.QuotaUseCase,
	keyManager cryptoService.KeyManager,
	aeadManager cryptoService.AEADManager,
	kekUseCase cryptoUseCase.KekUseCase,
	blobs *storage.BlobStore,
	computePool *semaphore.Weighted,
	algorithm cryptoDomain.Algorithm,
	logger *slog.Logger,
) FileUseCase {
	return &fileUseCase{
		fileRepo:    fileRepo,
		quota:       quota,
		keyManager:  keyManager,
		aeadManager: aeadManager,
		kekUseCase:  kekUseCase,
		blobs:       blobs,
		computePool: computePool,
		algorithm:   algorithm,
		logger:      logger,
	}
}

// List returns the caller's files, newest first.
func (uc *fileUseCase) List(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int64,
) ([]*filesDomain.File, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.fileRepo.ListByUser(ctx, userID, limit, offset)
}

// Download decrypts a completed file and returns its plaintext stream.
func (uc *fileUseCase) Download(
	ctx context.Context,
	userID, fileID uuid.UUID,
) (*DownloadResult, error) {
	file, err := uc.fileRepo.GetByIDForUser(ctx, fileID, userID)
	if err != nil {
		return nil, err
	}
	if file.UploadStatus != filesDomain.UploadCompleted {
		return nil, filesDomain.ErrFileNotDownloadable
	}
	if len(file.Nonce) != cryptoDomain.NonceSize {
		return nil, cryptoDomain.ErrInvalidNonceSize
	}

	kekKey, err := uc.kekUseCase.KekByVersion(ctx, file.KekVersion)
	if err != nil {
		return nil, err
	}

	dek, err := uc.keyManager.UnwrapDekWithKek(file.EncryptedDek, file.DekNonce, kekKey, uc.algorithm)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dek)

	ciphertext, err := uc.blobs.Read(userID, fileID)
	if err != nil {
		return nil, err
	}

	plaintext, err := uc.decryptBody(ctx, dek, ciphertext, file.Nonce)
	if err != nil {
		uc.logger.Error("file body failed authentication",
			slog.String("file_id", fileID.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	if err := uc.fileRepo.IncrementAccessCount(ctx, fileID); err != nil {
		uc.logger.Warn("failed to increment access count",
			slog.String("file_id", fileID.String()),
			slog.Any("error", err),
		)
	}

	return &DownloadResult{
		File:   file,
		Reader: bytes.NewReader(plaintext),
	}, nil
}

// Delete soft-deletes a file and releases its quota. Returns the released
// size. Deleting an already-deleted or unknown file reports not found.
func (uc *fileUseCase) Delete(ctx context.Context, userID, fileID uuid.UUID) (int64, error) {
	size, deleted, err := uc.fileRepo.SoftDelete(ctx, fileID, userID)
	if err != nil {
		return 0, err
	}
	if !deleted {
		return 0, filesDomain.ErrFileNotFound
	}

	if err := uc.quota.Rollback(ctx, userID, size); err != nil {
		// The file is already gone from listings; surface the accounting
		// problem in logs and let recalculate repair it.
		uc.logger.Error("quota release failed after delete",
			slog.String("file_id", fileID.String()),
			slog.Any("error", err),
		)
	}

	return size, nil
}

// decryptBody AEAD-decrypts a file body under the compute pool.
func (uc *fileUseCase) decryptBody(
	ctx context.Context,
	dek, ciphertext, nonce []byte,
) ([]byte, error) {
	if err := uc.computePool.Acquire(ctx, 1); err != nil {
		return nil, apperrors.Wrap(err, "failed to acquire compute slot")
	}
	defer uc.computePool.Release(1)

	aead, err := uc.aeadManager.CreateCipher(dek, uc.algorithm)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Decrypt(ciphertext, nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}
