package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/vaultfs/internal/errors"
	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
	"github.com/allisson/vaultfs/internal/files/storage"
	userUsecase "github.com/allisson/vaultfs/internal/user/usecase"
)

// cleanupBatchSize bounds how many expired uploads one sweep reclaims.
const cleanupBatchSize = 100

// cleanupUseCase implements CleanupUseCase.
//
// Reclamation mirrors cancel: flip pending→failed, remove the staging
// directory, roll back the reservation. The conditional flip means a sweep
// racing a late finalize leaves the winner's work intact.
type cleanupUseCase struct {
	fileRepo FileRepository
	quota    userUsecase.QuotaUseCase
	staging  *storage.Staging
	ttl      time.Duration
	logger   *slog.Logger
}

// NewCleanupUseCase creates a new CleanupUseCase.
func NewCleanupUseCase(
	fileRepo FileRepository,
	quota userUsecase.QuotaUseCase,
	staging *storage.Staging,
	ttl time.Duration,
	logger *slog.Logger,
) CleanupUseCase {
	return &cleanupUseCase{
		fileRepo: fileRepo,
		quota:    quota,
		staging:  staging,
		ttl:      ttl,
		logger:   logger,
	}
}

// Run reclaims pending uploads older than the TTL and removes staging
// directories that no longer have a live pending record.
func (uc *cleanupUseCase) Run(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult

	cutoff := time.Now().UTC().Add(-uc.ttl)
	expired, err := uc.fileRepo.ListExpiredPending(ctx, cutoff, cleanupBatchSize)
	if err != nil {
		return result, err
	}

	live := make(map[uuid.UUID]struct{})
	for _, file := range expired {
		flipped, err := uc.fileRepo.MarkFailed(ctx, file.ID)
		if err != nil {
			uc.logger.Error("cleanup: failed to mark upload failed",
				slog.String("upload_id", file.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		if !flipped {
			// Finalized or cancelled between the scan and the flip.
			continue
		}

		if err := uc.staging.Remove(file.ID); err != nil {
			uc.logger.Warn("cleanup: failed to remove staging dir",
				slog.String("upload_id", file.ID.String()),
				slog.Any("error", err),
			)
		}
		if err := uc.quota.Rollback(ctx, file.UserID, file.FileSize); err != nil {
			uc.logger.Error("cleanup: quota rollback failed",
				slog.String("upload_id", file.ID.String()),
				slog.Any("error", err),
			)
		}

		live[file.ID] = struct{}{}
		result.ReclaimedUploads++
	}

	// Orphaned staging dirs: directories with no file record, or whose upload
	// already left pending (crashed finalize, cancelled mid-write), are removed
	// at any age. A directory whose upload is still pending is removed only
	// once that upload is older than the TTL window.
	dirs, err := uc.staging.ListDirs()
	if err != nil {
		return result, err
	}
	for _, id := range dirs {
		if _, justReclaimed := live[id]; justReclaimed {
			continue
		}
		orphaned, err := uc.isOrphanedDir(ctx, id, cutoff)
		if err != nil {
			uc.logger.Warn("cleanup: failed to inspect staging dir",
				slog.String("upload_id", id.String()),
				slog.Any("error", err),
			)
			continue
		}
		if !orphaned {
			continue
		}
		if err := uc.staging.Remove(id); err != nil {
			uc.logger.Warn("cleanup: failed to remove orphaned staging dir",
				slog.String("upload_id", id.String()),
				slog.Any("error", err),
			)
			continue
		}
		result.OrphanedStageDirs++
	}

	if result.ReclaimedUploads > 0 || result.OrphanedStageDirs > 0 {
		uc.logger.Info("cleanup sweep finished",
			slog.Int("reclaimed_uploads", result.ReclaimedUploads),
			slog.Int("orphaned_dirs", result.OrphanedStageDirs),
		)
	}

	return result, nil
}

// isOrphanedDir reports whether a staging directory has no pending upload
// behind it and is old enough to reclaim.
func (uc *cleanupUseCase) isOrphanedDir(
	ctx context.Context,
	id uuid.UUID,
	cutoff time.Time,
) (bool, error) {
	file, err := uc.fileRepo.GetByID(ctx, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// No record at all: leftover from a crashed init.
			return true, nil
		}
		return false, err
	}
	if file.UploadStatus == filesDomain.UploadPending {
		// A young pending upload may still be in flight; only reclaim past
		// the TTL (the next ListExpiredPending sweep will flip it too).
		return file.CreatedAt.Before(cutoff), nil
	}
	return true, nil
}

// CleanupWorker runs the cleanup use case on a fixed interval until the
// context is cancelled.
type CleanupWorker struct {
	cleanup  CleanupUseCase
	interval time.Duration
	logger   *slog.Logger
}

// NewCleanupWorker creates a new CleanupWorker.
func NewCleanupWorker(cleanup CleanupUseCase, interval time.Duration, logger *slog.Logger) *CleanupWorker {
	return &CleanupWorker{
		cleanup:  cleanup,
		interval: interval,
		logger:   logger,
	}
}

// Start blocks, sweeping on every tick, until ctx is cancelled.
func (w *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("cleanup worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			if _, err := w.cleanup.Run(ctx); err != nil {
				w.logger.Error("cleanup sweep failed", slog.Any("error", err))
			}
		}
	}
}
