// Package usecase implements the upload state machine, file read paths and
// the cleanup of abandoned uploads.
package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
	userDomain "github.com/allisson/vaultfs/internal/user/domain"
)

// FileRepository defines file record persistence operations.
type FileRepository interface {
	Create(ctx context.Context, file *filesDomain.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*filesDomain.File, error)
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*filesDomain.File, error)
	MarkCompleted(ctx context.Context, file *filesDomain.File) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	SoftDelete(ctx context.Context, id, userID uuid.UUID) (int64, bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int64) ([]*filesDomain.File, error)
	IncrementAccessCount(ctx context.Context, id uuid.UUID) error
	SumActiveSizes(ctx context.Context, userID uuid.UUID) (int64, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*filesDomain.File, error)
}

// UploadStatsRepository records daily upload counters.
type UploadStatsRepository interface {
	RecordUpload(ctx context.Context, userID uuid.UUID, day time.Time, fileSize int64) error
}

// UserGetter loads user records for DEK unwrapping at finalize.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
}

// FolderChecker validates folder ownership for upload targeting.
type FolderChecker interface {
	// Exists reports whether the folder exists, is owned by the user and is
	// not soft-deleted.
	Exists(ctx context.Context, folderID, userID uuid.UUID) (bool, error)
}

// InitUploadInput is the input for starting an upload.
type InitUploadInput struct {
	FileName string
	FileSize int64
	MimeType string
	FolderID *uuid.UUID
}

// InitUploadResult describes a started upload.
type InitUploadResult struct {
	UploadID    uuid.UUID
	TotalChunks int
	ChunkSize   int64
}

// UploadUseCase is the three-phase chunked upload state machine. State lives
// in the database (upload_status) and on disk (the staging directory), never
// in process memory, so crashes between phases are reconciled by the cleanup
// worker rather than lost.
type UploadUseCase interface {
	Init(ctx context.Context, userID uuid.UUID, input InitUploadInput) (*InitUploadResult, error)
	Chunk(ctx context.Context, userID, uploadID uuid.UUID, chunkIndex int, data []byte) error
	Finalize(ctx context.Context, userID, uploadID uuid.UUID, pdk []byte) (*filesDomain.File, error)
	Cancel(ctx context.Context, userID, uploadID uuid.UUID) error
}

// DownloadResult carries a decrypted file body and its metadata.
type DownloadResult struct {
	File   *filesDomain.File
	Reader io.Reader
}

// FileUseCase covers the read and delete paths over completed files.
type FileUseCase interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int64) ([]*filesDomain.File, error)
	Download(ctx context.Context, userID, fileID uuid.UUID) (*DownloadResult, error)
	Delete(ctx context.Context, userID, fileID uuid.UUID) (int64, error)
}

// CleanupResult summarizes one reclamation sweep.
type CleanupResult struct {
	ReclaimedUploads  int
	OrphanedStageDirs int
}

// CleanupUseCase reclaims abandoned pending uploads past their TTL.
type CleanupUseCase interface {
	Run(ctx context.Context) (CleanupResult, error)
}
