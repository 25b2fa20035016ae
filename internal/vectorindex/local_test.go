package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vecsync-mcp/internal/embedder"
	"github.com/dshills/vecsync-mcp/internal/storage"
)

func setupLocal(t *testing.T) (*Local, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewLocal(store, embedder.NewLocalProvider(0, embedder.NewCache(100)), 2), store
}

func embedPoints(t *testing.T, idx Index, collection, path string, texts map[string]string) []Point {
	t.Helper()
	points := make([]Point, 0, len(texts))
	for id, text := range texts {
		v, err := idx.Embed(context.Background(), text)
		require.NoError(t, err)
		points = append(points, Point{ID: id, Collection: collection, Path: path, Vector: v})
	}
	return points
}

func TestLocalIndex(t *testing.T) {
	ctx := context.Background()
	idx, store := setupLocal(t)
	require.NoError(t, idx.Ping(ctx))

	require.NoError(t, idx.Upsert(ctx, embedPoints(t, idx, "docs", "a.md", map[string]string{
		"a1": "install the server with docker",
		"a2": "configure logging levels",
	})))
	require.NoError(t, idx.Upsert(ctx, embedPoints(t, idx, "notes", "b.md", map[string]string{
		"b1": "install the server from source",
	})))

	n, err := store.CountEmbeddings(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	q, err := idx.Embed(ctx, "install the server")
	require.NoError(t, err)

	t.Run("query ranks by similarity", func(t *testing.T) {
		matches, err := idx.Query(ctx, q, 10, Filter{})
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "a2", matches[2].ID)
		assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	})

	t.Run("collection filter", func(t *testing.T) {
		matches, err := idx.Query(ctx, q, 10, Filter{Collection: "notes"})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "b1", matches[0].ID)
		assert.Equal(t, "b.md", matches[0].Path)
	})

	t.Run("min score", func(t *testing.T) {
		matches, err := idx.Query(ctx, q, 10, Filter{MinScore: 0.99})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("delete and delete collection", func(t *testing.T) {
		require.NoError(t, idx.Delete(ctx, []string{"a1"}))
		n, _ := store.CountEmbeddings(ctx, "docs")
		assert.Equal(t, 1, n)

		require.NoError(t, idx.DeleteCollection(ctx, "docs"))
		n, _ = store.CountEmbeddings(ctx, "docs")
		assert.Equal(t, 0, n)
		n, _ = store.CountEmbeddings(ctx, "notes")
		assert.Equal(t, 1, n)
	})
}

func TestEmbedBatchSplitsAndPreservesOrder(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupLocal(t)

	texts := []string{"one", "two", "three", "four", "five"}
	vectors, err := idx.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		v, err := idx.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, v, vectors[i])
	}
}

func TestUpsertRejectsEmptyVector(t *testing.T) {
	idx, _ := setupLocal(t)
	err := idx.Upsert(context.Background(), []Point{{ID: "x", Collection: "c", Path: "p"}})
	assert.Error(t, err)
}

func TestNewFactory(t *testing.T) {
	emb := embedder.NewLocalProvider(0, nil)

	idx, err := New(Config{}, nil, emb)
	require.NoError(t, err)
	assert.IsType(t, &Local{}, idx)

	idx, err = New(Config{Backend: "qdrant", Qdrant: QdrantConfig{URL: "http://localhost:6333"}}, nil, emb)
	require.NoError(t, err)
	assert.IsType(t, &Qdrant{}, idx)

	_, err = New(Config{Backend: "qdrant"}, nil, emb)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = New(Config{Backend: "pinecone"}, nil, emb)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
