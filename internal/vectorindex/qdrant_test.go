package vectorindex

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vecsync-mcp/internal/embedder"
)

// fakeQdrant implements the slice of the Qdrant REST API the adapter uses
type fakeQdrant struct {
	mu      sync.Mutex
	created bool
	size    int
	points  map[string]qdrantPoint
	apiKey  string
}

func (f *fakeQdrant) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if f.apiKey != "" && r.Header.Get("api-key") != f.apiKey {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		path := r.URL.Path
		switch {
		case r.Method == http.MethodGet && path == "/collections":
			_, _ = w.Write([]byte(`{"result":{"collections":[]}}`))
		case r.Method == http.MethodGet && path == "/collections/vecsync":
			if !f.created {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"result":{}}`))
		case r.Method == http.MethodPut && path == "/collections/vecsync":
			var body struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Cosine", body.Vectors.Distance)
			f.created = true
			f.size = body.Vectors.Size
			_, _ = w.Write([]byte(`{"result":true}`))
		case !f.created:
			http.Error(w, "not found", http.StatusNotFound)
		case r.Method == http.MethodPut && path == "/collections/vecsync/points":
			var body struct {
				Points []qdrantPoint `json:"points"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			for _, p := range body.Points {
				f.points[p.ID] = p
			}
			_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
		case r.Method == http.MethodPost && path == "/collections/vecsync/points/delete":
			var body struct {
				Points []string      `json:"points"`
				Filter *qdrantFilter `json:"filter"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			for _, id := range body.Points {
				delete(f.points, id)
			}
			if body.Filter != nil {
				for id, p := range f.points {
					if f.matches(p, body.Filter) {
						delete(f.points, id)
					}
				}
			}
			_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
		case r.Method == http.MethodPost && path == "/collections/vecsync/points/search":
			var body struct {
				Vector         []float32     `json:"vector"`
				Limit          int           `json:"limit"`
				Filter         *qdrantFilter `json:"filter"`
				ScoreThreshold float64       `json:"score_threshold"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			type hit struct {
				ID      string         `json:"id"`
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			}
			hits := []hit{}
			for _, p := range f.points {
				if body.Filter != nil && !f.matches(p, body.Filter) {
					continue
				}
				s := cos(body.Vector, p.Vector)
				if s < body.ScoreThreshold {
					continue
				}
				hits = append(hits, hit{ID: p.ID, Score: s, Payload: p.Payload})
			}
			sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
			if len(hits) > body.Limit {
				hits = hits[:body.Limit]
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"result": hits})
		default:
			t.Errorf("unexpected request %s %s", r.Method, path)
			http.Error(w, "bad request", http.StatusBadRequest)
		}
	})
}

func (f *fakeQdrant) matches(p qdrantPoint, filter *qdrantFilter) bool {
	for _, c := range filter.Must {
		if p.Payload[c.Key] != c.Match["value"] {
			return false
		}
	}
	return true
}

func cos(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func setupQdrant(t *testing.T, apiKey string) (*Qdrant, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{points: map[string]qdrantPoint{}, apiKey: apiKey}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	idx := NewQdrant(QdrantConfig{URL: srv.URL + "/", APIKey: apiKey}, embedder.NewLocalProvider(0, nil), 0)
	t.Cleanup(func() { _ = idx.Close() })
	return idx, fake
}

func TestQdrantIndex(t *testing.T) {
	ctx := context.Background()
	idx, fake := setupQdrant(t, "secret")
	require.NoError(t, idx.Ping(ctx))

	t.Run("query before any write is empty", func(t *testing.T) {
		matches, err := idx.Query(ctx, []float32{1}, 5, Filter{})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	require.NoError(t, idx.Upsert(ctx, embedPoints(t, idx, "docs", "a.md", map[string]string{
		"11111111-1111-1111-1111-111111111111": "install the server with docker",
		"22222222-2222-2222-2222-222222222222": "configure logging levels",
	})))
	require.NoError(t, idx.Upsert(ctx, embedPoints(t, idx, "notes", "b.md", map[string]string{
		"33333333-3333-3333-3333-333333333333": "install the server from source",
	})))
	assert.True(t, fake.created)
	assert.Equal(t, embedder.LocalDimension, fake.size)
	assert.Len(t, fake.points, 3)

	q, err := idx.Embed(ctx, "install the server")
	require.NoError(t, err)

	t.Run("filtered query", func(t *testing.T) {
		matches, err := idx.Query(ctx, q, 10, Filter{Collection: "notes"})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "33333333-3333-3333-3333-333333333333", matches[0].ID)
		assert.Equal(t, "notes", matches[0].Collection)
		assert.Equal(t, "b.md", matches[0].Path)
	})

	t.Run("score threshold", func(t *testing.T) {
		matches, err := idx.Query(ctx, q, 10, Filter{MinScore: 0.99})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("delete ids", func(t *testing.T) {
		require.NoError(t, idx.Delete(ctx, []string{"11111111-1111-1111-1111-111111111111"}))
		assert.Len(t, fake.points, 2)
	})

	t.Run("delete collection by payload", func(t *testing.T) {
		require.NoError(t, idx.DeleteCollection(ctx, "docs"))
		assert.Len(t, fake.points, 1)
	})
}

func TestQdrantErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong api key", func(t *testing.T) {
		idx, _ := setupQdrant(t, "secret")
		idx.apiKey = "wrong"
		err := idx.Ping(ctx)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "403"))
	})

	t.Run("unreachable", func(t *testing.T) {
		idx := NewQdrant(QdrantConfig{URL: "http://127.0.0.1:1"}, embedder.NewLocalProvider(0, nil), 0)
		assert.Error(t, idx.Ping(ctx))
	})
}
