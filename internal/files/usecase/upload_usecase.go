package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
	cryptoService "github.com/allisson/vaultfs/internal/crypto/service"
	cryptoUseCase "github.com/allisson/vaultfs/internal/crypto/usecase"
	"github.com/allisson/vaultfs/internal/database"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
	"github.com/allisson/vaultfs/internal/files/storage"
	userUsecase "github.com/allisson/vaultfs/internal/user/usecase"
	appValidation "github.com/allisson/vaultfs/internal/validation"
)

// uploadUseCase implements UploadUseCase.
//
// Quota is reserved at init and compensated with a rollback on cancel,
// finalize failure or TTL reclamation; finalize success needs no quota work
// because the reservation already moved the counter. Large-buffer AEAD work
// runs under the compute pool semaphore so it cannot starve I/O handlers.
type uploadUseCase struct {
	txManager   database.TxManager
	fileRepo    FileRepository
	statsRepo   UploadStatsRepository
	userRepo    UserGetter
	folders     FolderChecker
	quota       userUsecase.QuotaUseCase
	keyManager  cryptoService.KeyManager
	aeadManager cryptoService.AEADManager
	kekUseCase  cryptoUseCase.KekUseCase
	staging     *storage.Staging
	blobs       *storage.BlobStore
	computePool *semaphore.Weighted
	chunkSize   int64
	algorithm   cryptoDomain.Algorithm
	logger      *slog.Logger

	// finalizeLocks serializes finalize per upload id. The conditional
	// pending→completed update already picks a single winner in the database;
	// this lock additionally stops a losing call from overwriting the
	// winner's ciphertext blob, since both write to the same path. Staging
	// and blobs are node-local, so an in-process lock suffices.
	finalizeLocks sync.Map // map[uuid.UUID]*sync.Mutex
}

// NewUploadUseCase creates a new UploadUseCase.
func NewUploadUseCase(
	txManager database.TxManager,
	fileRepo FileRepository,
	statsRepo UploadStatsRepository,
	userRepo UserGetter,
	folders FolderChecker,
	quota userUsecase.QuotaUseCase,
	keyManager cryptoService.KeyManager,
	aeadManager cryptoService.AEADManager,
	kekUseCase cryptoUseCase.KekUseCase,
	staging *storage.Staging,
	blobs *storage.BlobStore,
	computePool *semaphore.Weighted,
	chunkSize int64,
	algorithm cryptoDomain.Algorithm,
	logger *slog.Logger,
) UploadUseCase {
	return &uploadUseCase{
		txManager:   txManager,
		fileRepo:    fileRepo,
		statsRepo:   statsRepo,
		userRepo:    userRepo,
		folders:     folders,
		quota:       quota,
		keyManager:  keyManager,
		aeadManager: aeadManager,
		kekUseCase:  kekUseCase,
		staging:     staging,
		blobs:       blobs,
		computePool: computePool,
		chunkSize:   chunkSize,
		algorithm:   algorithm,
		logger:      logger,
	}
}

// validateInitInput validates upload initiation input.
func (uc *uploadUseCase) validateInitInput(input InitUploadInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.FileName,
			validation.Required.Error("file_name is required"),
			appValidation.NotBlank,
			validation.Length(1, 512).Error("file_name must be between 1 and 512 characters"),
		),
		validation.Field(&input.FileSize,
			validation.Required.Error("file_size is required"),
			validation.Min(int64(1)).Error("file_size must be positive"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// Init begins an upload: reserves quota, creates the pending file record and
// the staging directory, and returns the upload id.
func (uc *uploadUseCase) Init(
	ctx context.Context,
	userID uuid.UUID,
	input InitUploadInput,
) (*InitUploadResult, error) {
	if err := uc.validateInitInput(input); err != nil {
		return nil, err
	}

	if input.FolderID != nil {
		ok, err := uc.folders.Exists(ctx, *input.FolderID, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "folder not found")
		}
	}

	if _, err := uc.quota.Reserve(ctx, userID, input.FileSize); err != nil {
		return nil, err
	}

	file := &filesDomain.File{
		ID:               uuid.Must(uuid.NewV7()),
		UserID:           userID,
		FolderID:         input.FolderID,
		OriginalFilename: strings.TrimSpace(input.FileName),
		FileSize:         input.FileSize,
		MimeType:         input.MimeType,
		UploadStatus:     filesDomain.UploadPending,
		TotalChunks:      filesDomain.TotalChunksFor(input.FileSize, uc.chunkSize),
	}

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		return uc.fileRepo.Create(ctx, file)
	})
	if err != nil {
		// Compensate the reservation: the record never existed.
		uc.rollbackQuota(ctx, userID, input.FileSize)
		return nil, err
	}

	if err := uc.staging.CreateDir(file.ID); err != nil {
		uc.failUpload(ctx, file.ID, userID, input.FileSize)
		return nil, err
	}

	uc.logger.Info("upload initiated",
		slog.String("upload_id", file.ID.String()),
		slog.Int64("file_size", input.FileSize),
		slog.Int("total_chunks", file.TotalChunks),
	)

	return &InitUploadResult{
		UploadID:    file.ID,
		TotalChunks: file.TotalChunks,
		ChunkSize:   uc.chunkSize,
	}, nil
}

// Chunk stores one chunk blob. Chunks may arrive in any order; rewriting an
// index replaces the prior blob.
func (uc *uploadUseCase) Chunk(
	ctx context.Context,
	userID, uploadID uuid.UUID,
	chunkIndex int,
	data []byte,
) error {
	file, err := uc.getPendingUpload(ctx, userID, uploadID)
	if err != nil {
		return err
	}

	if chunkIndex < 0 || chunkIndex >= file.TotalChunks {
		return filesDomain.ErrChunkIndexOutOfRange
	}

	return uc.staging.WriteChunk(uploadID, chunkIndex, data)
}

// Finalize assembles the staged chunks, hashes and encrypts the plaintext,
// persists the ciphertext and flips the record to completed. The conditional
// pending→completed update serializes concurrent finalize calls; the loser
// gets ErrUploadNotPending. Any failure after the reservation compensates the
// quota and marks the upload failed.
func (uc *uploadUseCase) Finalize(
	ctx context.Context,
	userID, uploadID uuid.UUID,
	pdk []byte,
) (*filesDomain.File, error) {
	lockVal, _ := uc.finalizeLocks.LoadOrStore(uploadID, &sync.Mutex{})
	lock := lockVal.(*sync.Mutex)
	lock.Lock()
	defer func() {
		lock.Unlock()
		uc.finalizeLocks.Delete(uploadID)
	}()

	file, err := uc.getPendingUpload(ctx, userID, uploadID)
	if err != nil {
		return nil, err
	}

	missing, err := uc.staging.MissingChunks(uploadID, file.TotalChunks)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, filesDomain.ErrMissingChunks
	}

	plaintext, descriptors, err := uc.assemblePlaintext(uploadID, file.TotalChunks)
	if err != nil {
		uc.failUpload(ctx, uploadID, userID, file.FileSize)
		return nil, err
	}

	checksum := sha256.Sum256(plaintext)

	// Unwrap the owner's DEK with the session PDK, encrypt the body, and wrap
	// a per-file DEK copy under the active KEK.
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		uc.failUpload(ctx, uploadID, userID, file.FileSize)
		return nil, err
	}

	dek, err := uc.keyManager.UnwrapUserDekWithPDK(cryptoService.UserDek{
		EncryptedKey: user.EncryptedDek,
		Nonce:        user.DekNonce,
		Salt:         user.DekSalt,
	}, pdk)
	if err != nil {
		uc.failUpload(ctx, uploadID, userID, file.FileSize)
		return nil, err
	}
	defer cryptoDomain.Zero(dek)

	ciphertext, nonce, err := uc.encryptBody(ctx, dek, plaintext)
	if err != nil {
		uc.failUpload(ctx, uploadID, userID, file.FileSize)
		return nil, err
	}

	kekVersion, kekKey, err := uc.kekUseCase.ActiveKek(ctx)
	if err != nil {
		uc.failUpload(ctx, uploadID, userID, file.FileSize)
		return nil, err
	}

	wrappedDek, dekNonce, err := uc.keyManager.WrapDekWithKek(dek, kekKey, uc.algorithm)
	if err != nil {
		uc.failUpload(ctx, uploadID, userID, file.FileSize)
		return nil, err
	}

	chunksMetadata, err := filesDomain.EncodeChunkDescriptors(descriptors)
	if err != nil {
		uc.failUpload(ctx, uploadID, userID, file.FileSize)
		return nil, err
	}

	if err := uc.blobs.Write(userID, uploadID, ciphertext); err != nil {
		uc.failUpload(ctx, uploadID, userID, file.FileSize)
		return nil, err
	}

	file.EncryptedDek = wrappedDek
	file.DekNonce = dekNonce
	file.Nonce = nonce
	file.KekVersion = kekVersion
	file.ChecksumSHA256 = hex.EncodeToString(checksum[:])
	file.ChunksMetadata = chunksMetadata

	var won bool
	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		won, err = uc.fileRepo.MarkCompleted(ctx, file)
		if err != nil || !won {
			return err
		}
		return uc.statsRepo.RecordUpload(ctx, userID, time.Now().UTC(), file.FileSize)
	})
	if err != nil {
		uc.failUpload(ctx, uploadID, userID, file.FileSize)
		return nil, err
	}
	if !won {
		// A concurrent finalize or cancel got there first. If the record ended
		// up failed (cancel won), the blob written above is orphaned; reclaim
		// it. If a finalize won, the blob on disk is the winner's.
		if current, err := uc.fileRepo.GetByID(ctx, uploadID); err == nil &&
			current.UploadStatus == filesDomain.UploadFailed {
			if err := uc.blobs.Remove(userID, uploadID); err != nil {
				uc.logger.Warn("failed to remove orphaned blob",
					slog.String("upload_id", uploadID.String()),
					slog.Any("error", err),
				)
			}
		}
		return nil, filesDomain.ErrUploadNotPending
	}

	if err := uc.staging.Remove(uploadID); err != nil {
		uc.logger.Warn("failed to remove staging dir after finalize",
			slog.String("upload_id", uploadID.String()),
			slog.Any("error", err),
		)
	}

	uc.logger.Info("upload finalized",
		slog.String("file_id", file.ID.String()),
		slog.Int64("file_size", file.FileSize),
		slog.Int("kek_version", kekVersion),
	)

	file.UploadStatus = filesDomain.UploadCompleted
	return file, nil
}

// Cancel aborts a pending upload, releasing its reservation and staging
// space. Cancelling an upload that is already failed is a no-op.
func (uc *uploadUseCase) Cancel(ctx context.Context, userID, uploadID uuid.UUID) error {
	file, err := uc.fileRepo.GetByIDForUser(ctx, uploadID, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return filesDomain.ErrUploadNotFound
		}
		return err
	}

	switch file.UploadStatus {
	case filesDomain.UploadFailed:
		// Second cancel: nothing left to do.
		return nil
	case filesDomain.UploadCompleted:
		return filesDomain.ErrUploadNotPending
	}

	flipped, err := uc.fileRepo.MarkFailed(ctx, uploadID)
	if err != nil {
		return err
	}
	if !flipped {
		// Lost a race with finalize or the cleanup worker.
		return nil
	}

	if err := uc.staging.Remove(uploadID); err != nil {
		uc.logger.Warn("failed to remove staging dir on cancel",
			slog.String("upload_id", uploadID.String()),
			slog.Any("error", err),
		)
	}
	uc.rollbackQuota(ctx, userID, file.FileSize)

	return nil
}

// getPendingUpload loads an upload record and verifies ownership and state.
func (uc *uploadUseCase) getPendingUpload(
	ctx context.Context,
	userID, uploadID uuid.UUID,
) (*filesDomain.File, error) {
	file, err := uc.fileRepo.GetByIDForUser(ctx, uploadID, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, filesDomain.ErrUploadNotFound
		}
		return nil, err
	}
	if file.UploadStatus != filesDomain.UploadPending {
		return nil, filesDomain.ErrUploadNotPending
	}
	return file, nil
}

// assemblePlaintext concatenates staged chunks in index order, recording the
// boundary descriptors.
func (uc *uploadUseCase) assemblePlaintext(
	uploadID uuid.UUID,
	totalChunks int,
) ([]byte, []filesDomain.ChunkDescriptor, error) {
	var buf bytes.Buffer
	descriptors := make([]filesDomain.ChunkDescriptor, 0, totalChunks)

	for i := 0; i < totalChunks; i++ {
		reader, size, err := uc.staging.ReadChunk(uploadID, i)
		if err != nil {
			return nil, nil, err
		}

		offset := int64(buf.Len())
		if _, err := io.Copy(&buf, reader); err != nil {
			reader.Close()
			return nil, nil, apperrors.Wrap(err, "failed to read chunk")
		}
		reader.Close()

		descriptors = append(descriptors, filesDomain.ChunkDescriptor{
			Index:  i,
			Offset: offset,
			Size:   size,
		})
	}

	return buf.Bytes(), descriptors, nil
}

// encryptBody AEAD-encrypts the assembled plaintext under the compute pool.
func (uc *uploadUseCase) encryptBody(
	ctx context.Context,
	dek, plaintext []byte,
) (ciphertext, nonce []byte, err error) {
	if err := uc.computePool.Acquire(ctx, 1); err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to acquire compute slot")
	}
	defer uc.computePool.Release(1)

	aead, err := uc.aeadManager.CreateCipher(dek, uc.algorithm)
	if err != nil {
		return nil, nil, err
	}
	return aead.Encrypt(plaintext, nil)
}

// failUpload marks the upload failed and compensates the quota reservation.
// Only the caller that flips pending→failed runs the rollback, so a
// reservation is never released twice.
func (uc *uploadUseCase) failUpload(ctx context.Context, uploadID, userID uuid.UUID, size int64) {
	flipped, err := uc.fileRepo.MarkFailed(ctx, uploadID)
	if err != nil {
		uc.logger.Error("failed to mark upload failed",
			slog.String("upload_id", uploadID.String()),
			slog.Any("error", err),
		)
		return
	}
	if flipped {
		uc.rollbackQuota(ctx, userID, size)
	}
}

// rollbackQuota releases a reservation, logging instead of failing: the
// counter is clamped at zero and the recalculate endpoint can repair drift.
func (uc *uploadUseCase) rollbackQuota(ctx context.Context, userID uuid.UUID, size int64) {
	if err := uc.quota.Rollback(ctx, userID, size); err != nil {
		uc.logger.Error("quota rollback failed",
			slog.String("user_id", userID.String()),
			slog.Int64("bytes", size),
			slog.Any("error", err),
		)
	}
}
