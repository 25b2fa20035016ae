package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dshills/vecsync-mcp/internal/embedder"
)

// DefaultQdrantCollection holds the points of every engine collection,
// told apart by the "collection" payload field
const DefaultQdrantCollection = "vecsync"

// errQdrantNotFound marks a 404 from Qdrant
var errQdrantNotFound = errors.New("qdrant: not found")

// QdrantConfig contains connection details for a Qdrant server
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Qdrant stores vectors in a Qdrant server over its REST API, using
// cosine distance. The Qdrant collection is created on first write.
type Qdrant struct {
	embedding
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu      sync.Mutex
	ensured bool
}

// NewQdrant creates a Qdrant index that embeds with emb
func NewQdrant(cfg QdrantConfig, emb embedder.Embedder, batchSize int) *Qdrant {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultQdrantCollection
	}
	return &Qdrant{
		embedding:  newEmbedding(emb, batchSize),
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type qdrantFilter struct {
	Must []qdrantCondition `json:"must"`
}

type qdrantCondition struct {
	Key   string         `json:"key"`
	Match map[string]any `json:"match"`
}

func collectionFilter(collection string) *qdrantFilter {
	return &qdrantFilter{Must: []qdrantCondition{{Key: "collection", Match: map[string]any{"value": collection}}}}
}

// ensureCollection creates the Qdrant collection unless it already exists
func (q *Qdrant) ensureCollection(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ensured {
		return nil
	}

	err := q.do(ctx, http.MethodGet, q.collectionURL(""), nil, nil)
	if errors.Is(err, errQdrantNotFound) {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     q.Dimension(),
				"distance": "Cosine",
			},
		}
		err = q.do(ctx, http.MethodPut, q.collectionURL(""), body, nil)
	}
	if err != nil {
		return err
	}
	q.ensured = true
	return nil
}

func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}
	out := make([]qdrantPoint, len(points))
	for i, p := range points {
		out[i] = qdrantPoint{
			ID:     p.ID,
			Vector: p.Vector,
			Payload: map[string]any{
				"collection":  p.Collection,
				"path":        p.Path,
				"chunk_index": p.ChunkIndex,
			},
		}
	}
	return q.do(ctx, http.MethodPut, q.collectionURL("/points?wait=true"), map[string]any{"points": out}, nil)
}

func (q *Qdrant) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := q.do(ctx, http.MethodPost, q.collectionURL("/points/delete?wait=true"), map[string]any{"points": ids}, nil)
	if errors.Is(err, errQdrantNotFound) {
		return nil
	}
	return err
}

func (q *Qdrant) DeleteCollection(ctx context.Context, collection string) error {
	body := map[string]any{"filter": collectionFilter(collection)}
	err := q.do(ctx, http.MethodPost, q.collectionURL("/points/delete?wait=true"), body, nil)
	if errors.Is(err, errQdrantNotFound) {
		return nil
	}
	return err
}

func (q *Qdrant) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error) {
	if k <= 0 || len(vector) == 0 {
		return []Match{}, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if filter.Collection != "" {
		req["filter"] = collectionFilter(filter.Collection)
	}
	if filter.MinScore > 0 {
		req["score_threshold"] = filter.MinScore
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, q.collectionURL("/points/search"), req, &resp)
	if errors.Is(err, errQdrantNotFound) {
		return []Match{}, nil
	}
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := Match{ID: fmt.Sprint(r.ID), Score: r.Score}
		if v, ok := r.Payload["collection"].(string); ok {
			m.Collection = v
		}
		if v, ok := r.Payload["path"].(string); ok {
			m.Path = v
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Ping checks the Qdrant server and the embedder
func (q *Qdrant) Ping(ctx context.Context) error {
	if err := q.do(ctx, http.MethodGet, q.url+"/collections", nil, nil); err != nil {
		return err
	}
	if err := q.probe(ctx); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	return nil
}

func (q *Qdrant) Close() error {
	q.client.CloseIdleConnections()
	return q.emb.Close()
}

func (q *Qdrant) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", q.url, q.collection, suffix)
}

// do sends a JSON request and decodes the response into out when non-nil
func (q *Qdrant) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("qdrant: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return errQdrantNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
