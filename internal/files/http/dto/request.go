// Package dto defines request and response payloads for file endpoints.
package dto

// InitUploadRequest is the payload for POST /api/files/upload/init.
type InitUploadRequest struct {
	FileName string  `json:"file_name"`
	FileSize int64   `json:"file_size"`
	MimeType string  `json:"mime_type"`
	FolderID *string `json:"folder_id"`
}

// FinalizeUploadRequest is the payload for POST /api/files/upload/finalize.
type FinalizeUploadRequest struct {
	UploadID string `json:"upload_id"`
}

// CancelUploadRequest is the payload for POST /api/files/upload/cancel.
type CancelUploadRequest struct {
	UploadID string `json:"upload_id"`
}
