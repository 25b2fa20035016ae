package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// OllamaConfig configures a local Ollama instance
type OllamaConfig struct {
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
	Retry     RetryConfig
}

// OllamaProvider calls the Ollama /api/embed endpoint
type OllamaProvider struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
	cache     *Cache
	retry     RetryConfig
}

// NewOllamaProvider creates an embedder for an Ollama instance. The base
// URL falls back to OLLAMA_HOST, then localhost.
func NewOllamaProvider(cfg OllamaConfig, cache *Cache) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv(EnvOllamaHost)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = OllamaDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	return &OllamaProvider{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: cfg.Timeout},
		cache:     cache,
		retry:     cfg.Retry,
	}
}

type ollamaRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (o *OllamaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	resp, err := o.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}, Model: req.Model})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (o *OllamaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	model := req.Model
	if model == "" {
		model = o.model
	}

	out, missing := lookupBatch(o.cache, model, req.Texts)
	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, idx := range missing {
			texts[i] = req.Texts[idx]
		}

		vectors, err := retryWithBackoff(ctx, o.retry, func() ([][]float32, error) {
			return o.embed(ctx, texts, model)
		})
		if err != nil {
			return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, o.retry.MaxRetries, err)
		}

		for i, idx := range missing {
			emb := &Embedding{
				Vector:    vectors[i],
				Dimension: len(vectors[i]),
				Provider:  ProviderOllama,
				Model:     model,
				Hash:      cacheKey(model, texts[i]),
			}
			o.cache.Set(emb.Hash, emb)
			out[idx] = emb
		}
	}

	return &BatchEmbeddingResponse{Embeddings: out, Provider: ProviderOllama, Model: model}, nil
}

// embed sends one batch; the result has the same length and order as texts
func (o *OllamaProvider) embed(ctx context.Context, texts []string, model string) ([][]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: model, Input: texts})
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal embed request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama embed request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(ProviderOllama, resp); err != nil {
		return nil, err
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, permanent(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings)))
	}
	for _, v := range result.Embeddings {
		if len(v) != o.dimension {
			return nil, permanent(fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), o.dimension))
		}
	}
	return result.Embeddings, nil
}

func (o *OllamaProvider) Dimension() int {
	return o.dimension
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.model
}

func (o *OllamaProvider) Close() error {
	o.client.CloseIdleConnections()
	return nil
}
