package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeVector_RoundTrip(t *testing.T) {
	vector := []float32{0, 1.5, -2.25, float32(math.Pi)}
	blob := SerializeVector(vector)
	assert.Len(t, blob, 16)
	assert.Equal(t, vector, DeserializeVector(blob))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func seedVectors(t *testing.T, s *SQLiteStorage) {
	t.Helper()
	require.NoError(t, s.UpsertEmbeddings(context.Background(), []*Embedding{
		NewEmbedding("exact", "docs", "a.md", []float32{1, 0}),
		NewEmbedding("close", "docs", "b.md", []float32{0.9, 0.1}),
		NewEmbedding("orthogonal", "docs", "c.md", []float32{0, 1}),
		NewEmbedding("other", "notes", "d.md", []float32{1, 0}),
		NewEmbedding("wide", "docs", "e.md", []float32{1, 0, 0}),
	}))
}

func TestSearchVector(t *testing.T) {
	storage := setupTestDB(t)
	seedVectors(t, storage)
	ctx := context.Background()

	results, err := storage.SearchVector(ctx, []float32{1, 0}, 10, &SearchFilters{Collection: "docs"})
	require.NoError(t, err)
	require.Len(t, results, 3, "other collections and dimensions are excluded")

	assert.Equal(t, "exact", results[0].ChunkID)
	assert.Equal(t, "a.md", results[0].Path)
	assert.Equal(t, "docs", results[0].Collection)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)
	assert.Equal(t, "close", results[1].ChunkID)
	assert.Equal(t, "orthogonal", results[2].ChunkID)
	assert.InDelta(t, 0.0, results[2].SimilarityScore, 1e-6)
}

func TestSearchVector_Filters(t *testing.T) {
	storage := setupTestDB(t)
	seedVectors(t, storage)
	ctx := context.Background()

	results, err := storage.SearchVector(ctx, []float32{1, 0}, 10, &SearchFilters{Collection: "docs", MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 2)

	results, err = storage.SearchVector(ctx, []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)

	results, err = storage.SearchVector(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestSearchVector_EmptyInput(t *testing.T) {
	storage := setupTestDB(t)
	seedVectors(t, storage)

	results, err := storage.SearchVector(context.Background(), []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = storage.SearchVector(context.Background(), nil, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSortCandidates_TiesByID(t *testing.T) {
	c := []VectorResult{
		{ChunkID: "b", SimilarityScore: 0.5},
		{ChunkID: "a", SimilarityScore: 0.5},
		{ChunkID: "c", SimilarityScore: 0.9},
	}
	sortCandidates(c)
	assert.Equal(t, []string{"c", "a", "b"}, []string{c[0].ChunkID, c[1].ChunkID, c[2].ChunkID})
}
