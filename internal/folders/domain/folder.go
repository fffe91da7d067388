// Package domain defines the folder tree domain model.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/vaultfs/internal/errors"
)

// Folder is a node in a user's folder tree. ParentFolderID is nil for root
// folders. A folder's parent always belongs to the same owner, and because a
// parent must already exist at insert time the tree is acyclic by
// construction.
type Folder struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ParentFolderID *uuid.UUID
	Name           string
	Description    string
	IsDeleted      bool
	DeletedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FolderStats augments a folder with aggregate numbers for its direct
// contents.
type FolderStats struct {
	Folder         *Folder
	FileCount      int64
	SubfolderCount int64
	TotalSize      int64
}

// Folder error definitions.
var (
	// ErrFolderNotFound indicates the folder does not exist, is deleted, or is
	// not owned by the caller.
	ErrFolderNotFound = errors.Wrap(errors.ErrNotFound, "folder not found")

	// ErrParentNotFound indicates the requested parent folder is absent,
	// deleted or owned by someone else.
	ErrParentNotFound = errors.Wrap(errors.ErrInvalidInput, "parent folder not found")
)
