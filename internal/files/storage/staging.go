// Package storage implements the on-disk layout for file bodies: a staging
// area for in-flight upload chunks and a permanent store for ciphertext.
// Both roots must live on the same filesystem so finalize can move data with
// an atomic rename; a copy+sync+unlink fallback covers the cross-device case.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	apperrors "github.com/allisson/vaultfs/internal/errors"
)

// Staging manages per-upload chunk directories under a root path.
// Layout: <root>/<file_id>/<chunk_index>, one blob per received chunk.
type Staging struct {
	root string
}

// NewStaging creates a Staging rooted at root, creating the directory.
func NewStaging(root string) (*Staging, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, apperrors.Wrap(err, "failed to create staging root")
	}
	return &Staging{root: root}, nil
}

// Root returns the staging root path.
func (s *Staging) Root() string {
	return s.root
}

// dir returns the staging directory for an upload.
func (s *Staging) dir(fileID uuid.UUID) string {
	return filepath.Join(s.root, fileID.String())
}

// chunkPath returns the path for one chunk blob.
func (s *Staging) chunkPath(fileID uuid.UUID, index int) string {
	return filepath.Join(s.dir(fileID), strconv.Itoa(index))
}

// CreateDir creates the staging directory for an upload.
func (s *Staging) CreateDir(fileID uuid.UUID) error {
	if err := os.MkdirAll(s.dir(fileID), 0o700); err != nil {
		return apperrors.Wrap(err, "failed to create staging dir")
	}
	return nil
}

// WriteChunk stores one chunk blob. Writing the same index again replaces the
// prior blob (last-writer-wins): the chunk is written to a temp file first and
// renamed into place so an overlapping write can never corrupt a neighbour or
// leave a half-written chunk under the final name.
func (s *Staging) WriteChunk(fileID uuid.UUID, index int, data []byte) error {
	dir := s.dir(fileID)
	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%d-*", index))
	if err != nil {
		return apperrors.Wrap(err, "failed to create chunk temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(err, "failed to write chunk")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(err, "failed to close chunk")
	}

	if err := os.Rename(tmpName, s.chunkPath(fileID, index)); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(err, "failed to place chunk")
	}
	return nil
}

// MissingChunks reports which indices in 0..totalChunks-1 have no staged blob.
func (s *Staging) MissingChunks(fileID uuid.UUID, totalChunks int) ([]int, error) {
	var missing []int
	for i := 0; i < totalChunks; i++ {
		if _, err := os.Stat(s.chunkPath(fileID, i)); err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, i)
				continue
			}
			return nil, apperrors.Wrap(err, "failed to stat chunk")
		}
	}
	return missing, nil
}

// ReadChunk opens one staged chunk for reading.
func (s *Staging) ReadChunk(fileID uuid.UUID, index int) (io.ReadCloser, int64, error) {
	f, err := os.Open(s.chunkPath(fileID, index))
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "failed to open chunk")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, apperrors.Wrap(err, "failed to stat chunk")
	}
	return f, info.Size(), nil
}

// Remove deletes an upload's staging directory and everything in it.
// Removing an already-absent directory is a no-op.
func (s *Staging) Remove(fileID uuid.UUID) error {
	if err := os.RemoveAll(s.dir(fileID)); err != nil {
		return apperrors.Wrap(err, "failed to remove staging dir")
	}
	return nil
}

// ListDirs returns the upload ids that currently have staging directories.
// Entries that do not parse as UUIDs are skipped.
func (s *Staging) ListDirs() ([]uuid.UUID, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list staging root")
	}

	var ids []uuid.UUID
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := uuid.Parse(entry.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
