package dto

import (
	"time"

	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
)

// InitUploadResponse describes a started upload.
type InitUploadResponse struct {
	UploadID    string `json:"upload_id"`
	TotalChunks int    `json:"total_chunks"`
	ChunkSize   int64  `json:"chunk_size"`
}

// ChunkResponse acknowledges a stored chunk.
type ChunkResponse struct {
	UploadID   string `json:"upload_id"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkSize  int    `json:"chunk_size"`
}

// FileResponse is the public projection of a file record.
type FileResponse struct {
	ID          string     `json:"id"`
	FileName    string     `json:"file_name"`
	FileSize    int64      `json:"file_size"`
	MimeType    string     `json:"mime_type,omitempty"`
	FolderID    *string    `json:"folder_id,omitempty"`
	Checksum    string     `json:"checksum_sha256,omitempty"`
	AccessCount int        `json:"access_count"`
	UploadedAt  *time.Time `json:"uploaded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListFilesResponse wraps a file listing.
type ListFilesResponse struct {
	Files []FileResponse `json:"files"`
	Count int            `json:"count"`
}

// StorageInfoResponse reports quota and usage.
type StorageInfoResponse struct {
	QuotaBytes     int64   `json:"quota_bytes"`
	UsedBytes      int64   `json:"used_bytes"`
	AvailableBytes int64   `json:"available_bytes"`
	UsagePercent   float64 `json:"usage_percent"`
	Plan           string  `json:"plan"`
}

// DeleteFileResponse reports a soft delete.
type DeleteFileResponse struct {
	Message       string `json:"message"`
	QuotaReleased int64  `json:"quota_released"`
}

// RecalculateQuotaResponse reports a usage recomputation.
type RecalculateQuotaResponse struct {
	UsedBytes int64  `json:"used_bytes"`
	Message   string `json:"message"`
}

// MapFileToResponse converts a file record to its public projection.
func MapFileToResponse(file *filesDomain.File) FileResponse {
	resp := FileResponse{
		ID:          file.ID.String(),
		FileName:    file.OriginalFilename,
		FileSize:    file.FileSize,
		MimeType:    file.MimeType,
		Checksum:    file.ChecksumSHA256,
		AccessCount: file.AccessCount,
		UploadedAt:  file.UploadedAt,
		CreatedAt:   file.CreatedAt,
	}
	if file.FolderID != nil {
		id := file.FolderID.String()
		resp.FolderID = &id
	}
	return resp
}
