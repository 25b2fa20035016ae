package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// LocalProvider embeds text offline by feature hashing. Words and
// character trigrams are hashed into a fixed number of signed buckets and
// the result is normalized, so texts sharing vocabulary land close together
// under cosine similarity. No network or model files are needed.
type LocalProvider struct {
	dimension int
	cache     *Cache
}

// NewLocalProvider creates the offline embedder. A non-positive dimension
// selects LocalDimension.
func NewLocalProvider(dimension int, cache *Cache) *LocalProvider {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{dimension: dimension, cache: cache}
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKey(DefaultLocalModel, req.Text)
	if emb, ok := l.cache.Get(key); ok {
		return emb, nil
	}

	vector := l.vectorize(req.Text)
	emb := &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  ProviderLocal,
		Model:     DefaultLocalModel,
		Hash:      key,
	}
	l.cache.Set(key, emb)
	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      DefaultLocalModel,
	}, nil
}

// vectorize hashes the features of text into a unit vector
func (l *LocalProvider) vectorize(text string) []float32 {
	v := make([]float32, l.dimension)
	words := tokenize(text)
	for _, w := range words {
		l.add(v, "w:"+w, 1)
		padded := "^" + w + "$"
		r := []rune(padded)
		for i := 0; i+3 <= len(r); i++ {
			l.add(v, "g:"+string(r[i:i+3]), 0.5)
		}
	}
	if len(words) == 0 {
		// punctuation or symbols only
		l.add(v, "raw:"+text, 1)
	}
	return NormalizeVector(v)
}

func (l *LocalProvider) add(v []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(l.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[bucket] += weight
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return DefaultLocalModel
}

func (l *LocalProvider) Close() error {
	return nil
}
