package types

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Sync errors
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrIllegalTransition = errors.New("illegal sync state transition")
	ErrIndexUnavailable  = errors.New("vector index unavailable")
	ErrCollectionMissing = errors.New("collection name is required")

	// Search result errors
	ErrInvalidChunkID        = errors.New("invalid chunk ID")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between -1 and 1")
	ErrMissingPath           = errors.New("path is required")
	ErrEmptyContent          = errors.New("content cannot be empty")
)

// ChunkingError describes recoverable trouble found while chunking a file.
// The chunker degrades gracefully and reports these as warnings.
type ChunkingError struct {
	Path   string
	Offset int
	Reason string
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking %s at byte %d: %s", e.Path, e.Offset, e.Reason)
}

// IndexUnavailableError is returned when the embedding or vector index
// service cannot be reached
type IndexUnavailableError struct {
	Op  string
	Err error
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrIndexUnavailable, e.Op, e.Err)
}

func (e *IndexUnavailableError) Unwrap() []error {
	return []error{ErrIndexUnavailable, e.Err}
}

// FileSyncError records a per-file failure during a sync run
type FileSyncError struct {
	Path string
	Op   string // chunk, embed, upsert, delete, store
	Err  error
}

func (e *FileSyncError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *FileSyncError) Unwrap() error {
	return e.Err
}
