package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/vecsync-mcp/internal/embedder"
)

// Backends
const (
	BackendLocal  = "local"
	BackendQdrant = "qdrant"
)

// ErrUnknownBackend is returned by New for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown vector index backend")

// Point is one chunk vector to store
type Point struct {
	ID         string
	Collection string
	Path       string
	ChunkIndex int
	Vector     []float32
}

// Filter narrows a query
type Filter struct {
	Collection string  // empty searches every collection
	MinScore   float64 // minimum cosine similarity, zero disables
}

// Match is a query hit, best first
type Match struct {
	ID         string
	Collection string
	Path       string
	Score      float64
}

// Index is the embedding and vector storage service the sync engine writes
// to. Implementations must be safe for concurrent use.
type Index interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Upsert(ctx context.Context, points []Point) error
	Delete(ctx context.Context, ids []string) error
	DeleteCollection(ctx context.Context, collection string) error
	Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error)
	Ping(ctx context.Context) error
	Close() error
}

// embedding provides the Embed half of Index on top of an Embedder
type embedding struct {
	emb       embedder.Embedder
	batchSize int
}

func newEmbedding(emb embedder.Embedder, batchSize int) embedding {
	if batchSize <= 0 || batchSize > embedder.MaxBatchSize {
		batchSize = embedder.DefaultBatchSize
	}
	return embedding{emb: emb, batchSize: batchSize}
}

func (e embedding) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, err
	}
	return out.Vector, nil
}

// EmbedBatch embeds texts in provider-sized batches, preserving order
func (e embedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := e.emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts[start:end]})
		if err != nil {
			return nil, fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
		}
		vectors = append(vectors, resp.Vectors()...)
	}
	return vectors, nil
}

// probe embeds a short text to check the embedding service
func (e embedding) probe(ctx context.Context) error {
	_, err := e.Embed(ctx, "ping")
	return err
}

// Dimension returns the vector size produced by the embedder
func (e embedding) Dimension() int {
	return e.emb.Dimension()
}
