package dto

import (
	"time"

	filesDTO "github.com/allisson/vaultfs/internal/files/http/dto"
	foldersDomain "github.com/allisson/vaultfs/internal/folders/domain"
)

// FolderResponse is the public projection of a folder.
type FolderResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ParentFolderID *string   `json:"parent_folder_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FolderContentsResponse lists a folder's subfolders and files.
type FolderContentsResponse struct {
	Folders []FolderResponse       `json:"folders"`
	Files   []filesDTO.FileResponse `json:"files"`
}

// FolderStatsResponse reports a folder with its aggregate numbers and contents.
type FolderStatsResponse struct {
	Folder         FolderResponse         `json:"folder"`
	FileCount      int64                  `json:"file_count"`
	SubfolderCount int64                  `json:"subfolder_count"`
	TotalSize      int64                  `json:"total_size"`
	Contents       FolderContentsResponse `json:"contents"`
}

// MapFolderToResponse converts a folder to its public projection.
func MapFolderToResponse(folder *foldersDomain.Folder) FolderResponse {
	resp := FolderResponse{
		ID:          folder.ID.String(),
		Name:        folder.Name,
		Description: folder.Description,
		CreatedAt:   folder.CreatedAt,
	}
	if folder.ParentFolderID != nil {
		id := folder.ParentFolderID.String()
		resp.ParentFolderID = &id
	}
	return resp
}
