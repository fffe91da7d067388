package domain

import (
	"github.com/allisson/vaultfs/internal/errors"
)

// File storage error definitions.
var (
	// ErrFileNotFound indicates the file does not exist or is not visible to
	// the caller. Ownership misses intentionally collapse into this error so
	// responses do not reveal which file ids exist.
	ErrFileNotFound = errors.Wrap(errors.ErrNotFound, "file not found")

	// ErrUploadNotFound indicates no pending upload exists for the id.
	ErrUploadNotFound = errors.Wrap(errors.ErrNotFound, "upload not found")

	// ErrUploadNotPending indicates the upload is not in the pending state.
	// Returned to the loser of concurrent finalize calls and to operations on
	// completed or failed uploads.
	ErrUploadNotPending = errors.Wrap(errors.ErrWrongState, "upload is not pending")

	// ErrMissingChunks indicates finalize found staged chunks absent.
	ErrMissingChunks = errors.Wrap(errors.ErrWrongState, "upload is missing chunks")

	// ErrChunkIndexOutOfRange indicates a chunk index outside 0..total_chunks-1.
	ErrChunkIndexOutOfRange = errors.Wrap(errors.ErrInvalidInput, "chunk index out of range")

	// ErrFileNotDownloadable indicates a download of a file that never
	// completed its upload.
	ErrFileNotDownloadable = errors.Wrap(errors.ErrWrongState, "file upload is not completed")
)
