package vectorindex

import (
	"context"
	"fmt"

	"github.com/dshills/vecsync-mcp/internal/embedder"
	"github.com/dshills/vecsync-mcp/internal/storage"
)

// pinger is implemented by storage backends that can check their connection
type pinger interface {
	Ping(ctx context.Context) error
}

// Local keeps vectors in the SQLite vectors table
type Local struct {
	embedding
	store storage.Storage
}

// NewLocal creates an index over store that embeds with emb
func NewLocal(store storage.Storage, emb embedder.Embedder, batchSize int) *Local {
	return &Local{embedding: newEmbedding(emb, batchSize), store: store}
}

func (l *Local) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	rows := make([]*storage.Embedding, len(points))
	for i, p := range points {
		if len(p.Vector) == 0 {
			return fmt.Errorf("point %s has no vector", p.ID)
		}
		e := storage.NewEmbedding(p.ID, p.Collection, p.Path, p.Vector)
		e.Provider = l.emb.Provider()
		e.Model = l.emb.Model()
		rows[i] = e
	}
	return l.store.UpsertEmbeddings(ctx, rows)
}

func (l *Local) Delete(ctx context.Context, ids []string) error {
	_, err := l.store.DeleteEmbeddings(ctx, ids)
	return err
}

func (l *Local) DeleteCollection(ctx context.Context, collection string) error {
	_, err := l.store.DeleteCollectionEmbeddings(ctx, collection)
	return err
}

func (l *Local) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error) {
	results, err := l.store.SearchVector(ctx, vector, k, &storage.SearchFilters{
		Collection: filter.Collection,
		MinScore:   filter.MinScore,
	})
	if err != nil {
		return nil, err
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{ID: r.ChunkID, Collection: r.Collection, Path: r.Path, Score: r.SimilarityScore}
	}
	return matches, nil
}

// Ping checks the database and the embedder
func (l *Local) Ping(ctx context.Context) error {
	if p, ok := l.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	if err := l.probe(ctx); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	return nil
}

// Close releases the embedder. The storage is owned by the caller.
func (l *Local) Close() error {
	return l.emb.Close()
}
