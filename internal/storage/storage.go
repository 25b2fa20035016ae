package storage

import (
	"context"
	"time"

	"github.com/dshills/vecsync-mcp/pkg/types"
)

// Storage defines the interface for persisting sync state, the chunk table
// and the local vector index
type Storage interface {
	// Status operations
	GetSyncStatus(ctx context.Context, collection string) (*types.SyncStatus, error)
	ListSyncStatuses(ctx context.Context) ([]*types.SyncStatus, error)
	SaveSyncStatus(ctx context.Context, status *types.SyncStatus) error
	DeleteSyncStatus(ctx context.Context, collection string) error

	// Indexed file operations
	GetIndexedFile(ctx context.Context, collection, path string) (*IndexedFile, error)
	ListIndexedFiles(ctx context.Context, collection string) ([]*IndexedFile, error)
	DeleteIndexedFile(ctx context.Context, collection, path string) error

	// Chunk operations
	ReplaceFileChunks(ctx context.Context, file *IndexedFile, chunks []*types.Chunk) error
	ListChunks(ctx context.Context, collection, path string) ([]*types.Chunk, error)
	ListChunkIDs(ctx context.Context, collection, path string) ([]string, error)
	GetChunks(ctx context.Context, ids []string) (map[string]*types.Chunk, error)
	CountChunks(ctx context.Context, collection string) (int, error)
	DeleteCollectionChunks(ctx context.Context, collection string) (int, error)

	// Embedding operations
	UpsertEmbeddings(ctx context.Context, embeddings []*Embedding) error
	DeleteEmbeddings(ctx context.Context, chunkIDs []string) (int, error)
	DeleteCollectionEmbeddings(ctx context.Context, collection string) (int, error)
	CountEmbeddings(ctx context.Context, collection string) (int, error)

	// Search operations
	SearchVector(ctx context.Context, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// IndexedFile is the chunk table's record of one synced source file
type IndexedFile struct {
	Collection string
	Path       string
	SourceHash [32]byte
	ChunkCount int
	Strategy   string
	IndexedAt  time.Time
}

// Embedding is a chunk vector held by the local index
type Embedding struct {
	ChunkID    string
	Collection string
	Path       string
	Vector     []byte // Serialized float32 array
	Dimension  int
	Provider   string
	Model      string
	CreatedAt  time.Time
}

// NewEmbedding serializes vector into an Embedding
func NewEmbedding(chunkID, collection, path string, vector []float32) *Embedding {
	return &Embedding{
		ChunkID:    chunkID,
		Collection: collection,
		Path:       path,
		Vector:     serializeVector(vector),
		Dimension:  len(vector),
	}
}

// SearchFilters narrows vector search
type SearchFilters struct {
	Collection string  // empty searches every collection
	MinScore   float64 // minimum cosine similarity, zero disables
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	ChunkID         string
	Collection      string
	Path            string
	SimilarityScore float64
}
