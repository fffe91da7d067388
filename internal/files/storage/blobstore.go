package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	apperrors "github.com/allisson/vaultfs/internal/errors"
)

// BlobStore manages permanent ciphertext files under a root path.
// Layout: <root>/<user_id>/<file_id>, one blob per completed file.
type BlobStore struct {
	root string
}

// NewBlobStore creates a BlobStore rooted at root, creating the directory.
func NewBlobStore(root string) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, apperrors.Wrap(err, "failed to create blob root")
	}
	return &BlobStore{root: root}, nil
}

// path returns the blob path for a file.
func (b *BlobStore) path(userID, fileID uuid.UUID) string {
	return filepath.Join(b.root, userID.String(), fileID.String())
}

// Write persists a ciphertext blob. The data is written to a temp file in the
// target directory, synced, and renamed into place; when rename fails (e.g.
// across devices) it falls back to copy+sync+unlink.
func (b *BlobStore) Write(userID, fileID uuid.UUID, data []byte) error {
	dir := filepath.Join(b.root, userID.String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return apperrors.Wrap(err, "failed to create user blob dir")
	}

	tmp, err := os.CreateTemp(dir, "."+fileID.String()+"-*")
	if err != nil {
		return apperrors.Wrap(err, "failed to create blob temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(err, "failed to write blob")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(err, "failed to sync blob")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(err, "failed to close blob")
	}

	target := b.path(userID, fileID)
	if err := os.Rename(tmpName, target); err == nil {
		return nil
	}

	// Cross-device fallback: copy, sync, unlink the temp.
	if err := copyFileSync(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	os.Remove(tmpName)
	return nil
}

// Open opens a ciphertext blob for reading.
func (b *BlobStore) Open(userID, fileID uuid.UUID) (io.ReadCloser, error) {
	f, err := os.Open(b.path(userID, fileID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open blob")
	}
	return f, nil
}

// Read loads an entire ciphertext blob.
func (b *BlobStore) Read(userID, fileID uuid.UUID) ([]byte, error) {
	data, err := os.ReadFile(b.path(userID, fileID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read blob")
	}
	return data, nil
}

// Exists reports whether a blob is present on disk.
func (b *BlobStore) Exists(userID, fileID uuid.UUID) bool {
	_, err := os.Stat(b.path(userID, fileID))
	return err == nil
}

// Remove deletes a ciphertext blob. Absent blobs are a no-op.
func (b *BlobStore) Remove(userID, fileID uuid.UUID) error {
	if err := os.Remove(b.path(userID, fileID)); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(err, "failed to remove blob")
	}
	return nil
}

// copyFileSync copies src to dst and syncs the destination.
func copyFileSync(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return apperrors.Wrap(err, "failed to open source blob")
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return apperrors.Wrap(err, "failed to create destination blob")
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return apperrors.Wrap(err, "failed to copy blob")
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return apperrors.Wrap(err, "failed to sync destination blob")
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return apperrors.Wrap(err, "failed to close destination blob")
	}
	return nil
}
