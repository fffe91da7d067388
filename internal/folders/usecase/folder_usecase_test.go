package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/vaultfs/internal/errors"
	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
	foldersDomain "github.com/allisson/vaultfs/internal/folders/domain"
)

// passthroughTxManager runs the function without a real transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeFolderRepo keeps folders in memory with parent links.
type fakeFolderRepo struct {
	mu      sync.Mutex
	folders map[uuid.UUID]*foldersDomain.Folder
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: make(map[uuid.UUID]*foldersDomain.Folder)}
}

func (f *fakeFolderRepo) Create(ctx context.Context, folder *foldersDomain.Folder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *folder
	copied.CreatedAt = time.Now().UTC()
	f.folders[folder.ID] = &copied
	return nil
}

func (f *fakeFolderRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*foldersDomain.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[id]
	if !ok || folder.UserID != userID || folder.IsDeleted {
		return nil, foldersDomain.ErrFolderNotFound
	}
	copied := *folder
	return &copied, nil
}

func (f *fakeFolderRepo) Exists(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	_, err := f.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeFolderRepo) ListChildren(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID) ([]*foldersDomain.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*foldersDomain.Folder
	for _, folder := range f.folders {
		if folder.UserID != userID || folder.IsDeleted {
			continue
		}
		if parentID == nil && folder.ParentFolderID == nil {
			copied := *folder
			out = append(out, &copied)
		}
		if parentID != nil && folder.ParentFolderID != nil && *folder.ParentFolderID == *parentID {
			copied := *folder
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeFolderRepo) DescendantIDs(ctx context.Context, id, userID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	root, ok := f.folders[id]
	if !ok || root.UserID != userID || root.IsDeleted {
		return nil, nil
	}

	ids := []uuid.UUID{id}
	frontier := []uuid.UUID{id}
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		for _, folder := range f.folders {
			if folder.IsDeleted || folder.ParentFolderID == nil {
				continue
			}
			if *folder.ParentFolderID == next {
				ids = append(ids, folder.ID)
				frontier = append(frontier, folder.ID)
			}
		}
	}
	return ids, nil
}

func (f *fakeFolderRepo) SoftDeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range ids {
		if folder, ok := f.folders[id]; ok && folder.UserID == userID {
			folder.IsDeleted = true
			folder.DeletedAt = &now
		}
	}
	return nil
}

func (f *fakeFolderRepo) Stats(ctx context.Context, id, userID uuid.UUID) (int64, int64, int64, error) {
	return 0, 0, 0, nil
}

// fakeFileReparenter records reparent calls and serves folder listings.
type fakeFileReparenter struct {
	mu         sync.Mutex
	files      map[uuid.UUID]*filesDomain.File
	reparented []uuid.UUID
}

func newFakeFileReparenter() *fakeFileReparenter {
	return &fakeFileReparenter{files: make(map[uuid.UUID]*filesDomain.File)}
}

func (f *fakeFileReparenter) ReparentToRoot(ctx context.Context, userID uuid.UUID, folderIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reparented = append(f.reparented, folderIDs...)
	for _, file := range f.files {
		if file.FolderID == nil {
			continue
		}
		for _, folderID := range folderIDs {
			if *file.FolderID == folderID {
				file.FolderID = nil
			}
		}
	}
	return nil
}

func (f *fakeFileReparenter) ListByFolder(ctx context.Context, userID uuid.UUID, folderID *uuid.UUID) ([]*filesDomain.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*filesDomain.File
	for _, file := range f.files {
		if file.UserID != userID || file.IsDeleted {
			continue
		}
		if folderID == nil && file.FolderID == nil {
			copied := *file
			out = append(out, &copied)
		}
		if folderID != nil && file.FolderID != nil && *file.FolderID == *folderID {
			copied := *file
			out = append(out, &copied)
		}
	}
	return out, nil
}

func TestFolderUseCase_Create(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())
	repo := newFakeFolderRepo()
	files := newFakeFileReparenter()
	uc := NewFolderUseCase(passthroughTxManager{}, repo, files)

	t.Run("root folder", func(t *testing.T) {
		folder, err := uc.Create(ctx, userID, CreateFolderInput{Name: "Docs"})
		require.NoError(t, err)
		assert.Equal(t, "Docs", folder.Name)
		assert.Nil(t, folder.ParentFolderID)
	})

	t.Run("nested folder under owned parent", func(t *testing.T) {
		parent, err := uc.Create(ctx, userID, CreateFolderInput{Name: "Parent"})
		require.NoError(t, err)

		child, err := uc.Create(ctx, userID, CreateFolderInput{
			Name:           "Child",
			ParentFolderID: &parent.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, parent.ID, *child.ParentFolderID)
	})

	t.Run("parent owned by someone else", func(t *testing.T) {
		otherID := uuid.Must(uuid.NewV7())
		parent, err := uc.Create(ctx, otherID, CreateFolderInput{Name: "Theirs"})
		require.NoError(t, err)

		_, err = uc.Create(ctx, userID, CreateFolderInput{
			Name:           "Mine",
			ParentFolderID: &parent.ID,
		})
		assert.ErrorIs(t, err, foldersDomain.ErrParentNotFound)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := uc.Create(ctx, userID, CreateFolderInput{Name: "   "})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestFolderUseCase_Delete_CascadesAndReparents(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())
	repo := newFakeFolderRepo()
	files := newFakeFileReparenter()
	uc := NewFolderUseCase(passthroughTxManager{}, repo, files)

	docs, err := uc.Create(ctx, userID, CreateFolderInput{Name: "Docs"})
	require.NoError(t, err)
	notes, err := uc.Create(ctx, userID, CreateFolderInput{Name: "Notes", ParentFolderID: &docs.ID})
	require.NoError(t, err)

	// A file living inside Notes.
	fileID := uuid.Must(uuid.NewV7())
	files.files[fileID] = &filesDomain.File{
		ID:       fileID,
		UserID:   userID,
		FolderID: &notes.ID,
	}

	require.NoError(t, uc.Delete(ctx, userID, docs.ID))

	t.Run("both folders are filtered from listings", func(t *testing.T) {
		contents, err := uc.ListRoot(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, contents.Folders)

		_, _, err = uc.Get(ctx, userID, docs.ID)
		assert.ErrorIs(t, err, foldersDomain.ErrFolderNotFound)
		_, _, err = uc.Get(ctx, userID, notes.ID)
		assert.ErrorIs(t, err, foldersDomain.ErrFolderNotFound)
	})

	t.Run("the file reparented to root", func(t *testing.T) {
		assert.Nil(t, files.files[fileID].FolderID)
		assert.ElementsMatch(t, []uuid.UUID{docs.ID, notes.ID}, files.reparented)
	})

	t.Run("deleting again reports not found", func(t *testing.T) {
		err := uc.Delete(ctx, userID, docs.ID)
		assert.ErrorIs(t, err, foldersDomain.ErrFolderNotFound)
	})
}
