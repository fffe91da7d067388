// Package usecase implements folder tree business logic.
package usecase

import (
	"context"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/vaultfs/internal/database"
	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
	foldersDomain "github.com/allisson/vaultfs/internal/folders/domain"
	appValidation "github.com/allisson/vaultfs/internal/validation"
)

// FolderRepository defines folder persistence operations.
type FolderRepository interface {
	Create(ctx context.Context, folder *foldersDomain.Folder) error
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*foldersDomain.Folder, error)
	Exists(ctx context.Context, id, userID uuid.UUID) (bool, error)
	ListChildren(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID) ([]*foldersDomain.Folder, error)
	DescendantIDs(ctx context.Context, id, userID uuid.UUID) ([]uuid.UUID, error)
	SoftDeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error
	Stats(ctx context.Context, id, userID uuid.UUID) (fileCount, subfolderCount, totalSize int64, err error)
}

// FileReparenter moves files out of deleted folders.
type FileReparenter interface {
	ReparentToRoot(ctx context.Context, userID uuid.UUID, folderIDs []uuid.UUID) error
	ListByFolder(ctx context.Context, userID uuid.UUID, folderID *uuid.UUID) ([]*filesDomain.File, error)
}

// CreateFolderInput is the input for folder creation.
type CreateFolderInput struct {
	Name           string
	Description    string
	ParentFolderID *uuid.UUID
}

// FolderContents is a folder listing: subfolders plus files.
type FolderContents struct {
	Folders []*foldersDomain.Folder
	Files   []*filesDomain.File
}

// FolderUseCase defines folder business operations.
type FolderUseCase interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateFolderInput) (*foldersDomain.Folder, error)
	ListRoot(ctx context.Context, userID uuid.UUID) (*FolderContents, error)
	Get(ctx context.Context, userID, folderID uuid.UUID) (*foldersDomain.FolderStats, *FolderContents, error)
	Delete(ctx context.Context, userID, folderID uuid.UUID) error
}

// folderUseCase implements FolderUseCase.
type folderUseCase struct {
	txManager  database.TxManager
	folderRepo FolderRepository
	fileRepo   FileReparenter
}

// NewFolderUseCase creates a new FolderUseCase.
func NewFolderUseCase(
	txManager database.TxManager,
	folderRepo FolderRepository,
	fileRepo FileReparenter,
) FolderUseCase {
	return &folderUseCase{
		txManager:  txManager,
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
	}
}

// validateCreateInput validates folder creation input.
func (uc *folderUseCase) validateCreateInput(input CreateFolderInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Description,
			validation.Length(0, 1024).Error("description must be at most 1024 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// Create inserts a folder after verifying the parent belongs to the same user
// and is not deleted.
func (uc *folderUseCase) Create(
	ctx context.Context,
	userID uuid.UUID,
	input CreateFolderInput,
) (*foldersDomain.Folder, error) {
	if err := uc.validateCreateInput(input); err != nil {
		return nil, err
	}

	if input.ParentFolderID != nil {
		ok, err := uc.folderRepo.Exists(ctx, *input.ParentFolderID, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, foldersDomain.ErrParentNotFound
		}
	}

	folder := &foldersDomain.Folder{
		ID:             uuid.Must(uuid.NewV7()),
		UserID:         userID,
		ParentFolderID: input.ParentFolderID,
		Name:           strings.TrimSpace(input.Name),
		Description:    strings.TrimSpace(input.Description),
	}

	if err := uc.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// ListRoot lists root folders and root-level files.
func (uc *folderUseCase) ListRoot(ctx context.Context, userID uuid.UUID) (*FolderContents, error) {
	folders, err := uc.folderRepo.ListChildren(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	files, err := uc.fileRepo.ListByFolder(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	return &FolderContents{Folders: folders, Files: files}, nil
}

// Get returns a folder's stats together with its direct contents.
func (uc *folderUseCase) Get(
	ctx context.Context,
	userID, folderID uuid.UUID,
) (*foldersDomain.FolderStats, *FolderContents, error) {
	folder, err := uc.folderRepo.GetByIDForUser(ctx, folderID, userID)
	if err != nil {
		return nil, nil, err
	}

	fileCount, subfolderCount, totalSize, err := uc.folderRepo.Stats(ctx, folderID, userID)
	if err != nil {
		return nil, nil, err
	}

	folders, err := uc.folderRepo.ListChildren(ctx, userID, &folderID)
	if err != nil {
		return nil, nil, err
	}
	files, err := uc.fileRepo.ListByFolder(ctx, userID, &folderID)
	if err != nil {
		return nil, nil, err
	}

	stats := &foldersDomain.FolderStats{
		Folder:         folder,
		FileCount:      fileCount,
		SubfolderCount: subfolderCount,
		TotalSize:      totalSize,
	}
	return stats, &FolderContents{Folders: folders, Files: files}, nil
}

// Delete soft-deletes a folder and every descendant in one transaction.
// Files inside the deleted subtree are reparented to the root rather than
// deleted; their bytes stay accounted against the quota.
func (uc *folderUseCase) Delete(ctx context.Context, userID, folderID uuid.UUID) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		ids, err := uc.folderRepo.DescendantIDs(ctx, folderID, userID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return foldersDomain.ErrFolderNotFound
		}

		if err := uc.fileRepo.ReparentToRoot(ctx, userID, ids); err != nil {
			return err
		}
		return uc.folderRepo.SoftDeleteMany(ctx, userID, ids)
	})
}
