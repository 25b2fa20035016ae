package vectorindex

import (
	"fmt"
	"strings"

	"github.com/dshills/vecsync-mcp/internal/embedder"
	"github.com/dshills/vecsync-mcp/internal/storage"
)

// Config selects the index backend
type Config struct {
	Backend   string // local or qdrant
	BatchSize int    // texts per embedding request
	Qdrant    QdrantConfig
}

// New builds the configured index. store is only used by the local backend.
func New(cfg Config, store storage.Storage, emb embedder.Embedder) (Index, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendLocal:
		return NewLocal(store, emb, cfg.BatchSize), nil
	case BackendQdrant:
		if cfg.Qdrant.URL == "" {
			return nil, fmt.Errorf("%w: qdrant url is required", ErrUnknownBackend)
		}
		return NewQdrant(cfg.Qdrant, emb, cfg.BatchSize), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
