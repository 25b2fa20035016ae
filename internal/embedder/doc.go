// Package embedder turns chunk text into vectors.
//
// Four providers implement the Embedder interface:
//
//   - local: offline feature hashing, 384 dimensions, the default
//   - jina: Jina AI /v1/embeddings, 1024 dimensions
//   - openai: OpenAI /v1/embeddings, 1536 dimensions
//   - ollama: a local Ollama instance via /api/embed, 768 dimensions
//
// # Provider Selection
//
//  1. If VECSYNC_EMBEDDING_PROVIDER is set, use that provider
//  2. Else if JINA_API_KEY is set, use Jina AI
//  3. Else if OPENAI_API_KEY is set, use OpenAI
//  4. Else fall back to the local provider
//
// Explicit configuration bypasses detection:
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider: "ollama",
//	    Model:    "nomic-embed-text",
//	})
//
// # Batching and Caching
//
// GenerateBatch accepts up to MaxBatchSize texts and returns vectors in
// request order. Each provider keeps an LRU cache keyed by model and
// content hash, and only cache misses reach the network.
//
// # Error Handling
//
// Remote calls are retried with exponential backoff on transport errors,
// rate limits and 5xx responses. Other client errors fail immediately.
// Exhausted retries surface as ErrProviderFailed:
//
//	resp, err := emb.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // the service is unavailable, retry the sync later
//	}
package embedder
