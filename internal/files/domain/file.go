// Package domain defines the file storage domain models: file records, the
// upload state machine states, chunk descriptors and daily upload statistics.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/vaultfs/internal/errors"
)

// UploadStatus is the state of a file in the upload state machine.
// Transitions: absent → pending → completed, and pending → failed.
// The pending→completed transition is the single point of visibility for a
// finished upload; it happens in one conditional database update.
type UploadStatus string

// Upload states.
const (
	UploadPending   UploadStatus = "pending"
	UploadCompleted UploadStatus = "completed"
	UploadFailed    UploadStatus = "failed"
)

// LargeFileThreshold is the boundary between the two daily-stats buckets.
const LargeFileThreshold = 500 * 1024 * 1024

// File represents a stored file record.
//
// EncryptedDek is the per-file copy of the owner's DEK wrapped under the KEK
// of KekVersion at write time. It decouples file bodies from password
// rotation: a password change rewraps only the user row, while every file
// keeps decrypting through its own envelope. DekNonce is the envelope's AEAD
// nonce; Nonce is the 12-byte nonce the body itself was encrypted with.
// ChecksumSHA256 is computed over the plaintext before encryption.
type File struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	FolderID         *uuid.UUID
	OriginalFilename string
	FileSize         int64
	MimeType         string
	EncryptedDek     []byte
	DekNonce         []byte
	Nonce            []byte
	KekVersion       int
	UploadStatus     UploadStatus
	ChecksumSHA256   string
	ChunksMetadata   []byte
	TotalChunks      int
	AccessCount      int
	IsDeleted        bool
	DeletedAt        *time.Time
	UploadedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ChunkDescriptor records the boundaries of one uploaded chunk inside the
// assembled plaintext. The set of descriptors is persisted as the file's
// opaque chunks_metadata blob for operator tooling; nothing on the read path
// depends on it.
type ChunkDescriptor struct {
	Index  int   `json:"index"`
	Offset int64 `json:"offset"`
	Size   int64 `json:"size"`
}

// EncodeChunkDescriptors serializes descriptors for the chunks_metadata column.
func EncodeChunkDescriptors(descriptors []ChunkDescriptor) ([]byte, error) {
	data, err := json.Marshal(descriptors)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode chunk descriptors")
	}
	return data, nil
}

// DecodeChunkDescriptors parses a chunks_metadata blob.
func DecodeChunkDescriptors(data []byte) ([]ChunkDescriptor, error) {
	var descriptors []ChunkDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode chunk descriptors")
	}
	return descriptors, nil
}

// TotalChunksFor derives the chunk count for a file of size bytes split at
// chunkSize. The final chunk may be short.
func TotalChunksFor(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// DailyUploadStats counts a user's successful finalizes per day, bucketed at
// LargeFileThreshold. Upserted on every finalize; no policy hangs off it.
type DailyUploadStats struct {
	UserID     uuid.UUID
	Date       time.Time
	LargeFiles int
	SmallFiles int
}
