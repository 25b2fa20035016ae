package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(0, NewCache(10))

	assert.Equal(t, LocalDimension, p.Dimension())
	assert.Equal(t, ProviderLocal, p.Provider())
	assert.Equal(t, DefaultLocalModel, p.Model())

	t.Run("deterministic unit vectors", func(t *testing.T) {
		a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "Install the server"})
		require.NoError(t, err)
		b, err := NewLocalProvider(0, nil).GenerateEmbedding(ctx, EmbeddingRequest{Text: "Install the server"})
		require.NoError(t, err)

		assert.Equal(t, a.Vector, b.Vector)
		assert.Len(t, a.Vector, LocalDimension)
		assert.InDelta(t, 1.0, cosine(a.Vector, a.Vector), 1e-5)
	})

	t.Run("shared vocabulary scores higher", func(t *testing.T) {
		q, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "configure the database connection"})
		near, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "Database connection settings are configured in config.yaml"})
		far, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "bananas grow in tropical climates"})

		assert.Greater(t, cosine(q.Vector, near.Vector), cosine(q.Vector, far.Vector))
	})

	t.Run("symbols only still embed", func(t *testing.T) {
		e, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "---"})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, cosine(e.Vector, e.Vector), 1e-5)
	})

	t.Run("batch preserves order", func(t *testing.T) {
		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"alpha", "beta"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 2)

		alpha, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "alpha"})
		assert.Equal(t, alpha.Vector, resp.Vectors()[0])
	})

	t.Run("custom dimension", func(t *testing.T) {
		e, err := NewLocalProvider(64, nil).GenerateEmbedding(ctx, EmbeddingRequest{Text: "abc"})
		require.NoError(t, err)
		assert.Len(t, e.Vector, 64)
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{})
		assert.ErrorIs(t, err, ErrEmptyText)
	})
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "42"}, tokenize("Hello, World! 42"))
	assert.Empty(t, tokenize("--- ***"))
}
