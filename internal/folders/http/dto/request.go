// Package dto defines request and response payloads for folder endpoints.
package dto

// CreateFolderRequest is the payload for POST /api/folders.
type CreateFolderRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	ParentFolderID *string `json:"parent_folder_id"`
}
