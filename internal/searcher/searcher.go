package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/vecsync-mcp/internal/storage"
	"github.com/dshills/vecsync-mcp/internal/vectorindex"
	"github.com/dshills/vecsync-mcp/pkg/types"
)

const (
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultCacheSize = 1000
	DefaultCacheTTL  = time.Hour
)

// ErrEmptyQuery is returned for a blank query
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query      string
	Collection string  // empty searches every collection
	Limit      int     // k, clamped to [1, MaxLimit]
	MinScore   float64 // similarity threshold, zero disables
	UseCache   bool
	CacheTTL   time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalResults int
	Duration     time.Duration
	CacheHit     bool
	Missing      int // index hits with no chunk table row
}

type cacheEntry struct {
	collection string
	response   *SearchResponse
	expiresAt  time.Time
}

// Searcher answers similarity queries against the vector index and hydrates
// hits from the chunk table
type Searcher struct {
	storage storage.Storage
	index   vectorindex.Index
	logger  *slog.Logger
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// NewSearcher creates a Searcher with an LRU result cache of cacheSize entries
func NewSearcher(store storage.Storage, index vectorindex.Index, cacheSize int, logger *slog.Logger) *Searcher {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{storage: store, index: index, logger: logger, cache: cache}
}

// Search embeds the query, asks the index for the k nearest chunks and
// returns them ranked best first
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()
	if err := validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	key := computeQueryHash(req)
	if req.UseCache {
		if cached := s.checkCache(key); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	vector, err := s.index.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	matches, err := s.index.Query(ctx, vector, req.Limit, vectorindex.Filter{
		Collection: req.Collection,
		MinScore:   req.MinScore,
	})
	if err != nil {
		return nil, &types.IndexUnavailableError{Op: "query", Err: err}
	}

	response, err := s.hydrate(ctx, matches)
	if err != nil {
		return nil, err
	}
	response.Duration = time.Since(start)

	if req.UseCache && len(response.Results) > 0 {
		s.storeInCache(key, req, response)
	}
	return response, nil
}

// hydrate joins index matches with their chunk rows. Matches whose chunk is
// gone are skipped and counted.
func (s *Searcher) hydrate(ctx context.Context, matches []vectorindex.Match) (*SearchResponse, error) {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	chunks, err := s.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	resp := &SearchResponse{Results: make([]types.SearchResult, 0, len(matches))}
	for _, m := range matches {
		c, ok := chunks[m.ID]
		if !ok {
			resp.Missing++
			continue
		}
		resp.Results = append(resp.Results, types.SearchResult{
			ChunkID:         c.ID,
			Rank:            len(resp.Results) + 1,
			Collection:      c.Collection,
			Path:            c.Path,
			ChunkIndex:      c.ChunkIndex,
			Score:           m.Score,
			ChunkType:       c.ChunkType,
			HeaderHierarchy: append([]string(nil), c.HeaderHierarchy...),
			Language:        c.Language,
			Content:         c.Content,
		})
	}
	if resp.Missing > 0 {
		s.logger.Warn("search: index returned chunks missing from the chunk table",
			slog.Int("missing", resp.Missing))
	}
	resp.TotalResults = len(resp.Results)
	return resp, nil
}

func validateRequest(req *SearchRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return ErrEmptyQuery
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.MinScore < 0 || req.MinScore > 1 {
		return fmt.Errorf("similarity threshold %.2f outside [0, 1]", req.MinScore)
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = DefaultCacheTTL
	}
	return nil
}

func (s *Searcher) checkCache(key [32]byte) *SearchResponse {
	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

func (s *Searcher) storeInCache(key [32]byte, req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		collection: req.Collection,
		response:   copySearchResponse(response),
		expiresAt:  time.Now().Add(req.CacheTTL),
	}
	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// Invalidate drops cached queries that may include results from collection:
// those scoped to it and those spanning every collection
func (s *Searcher) Invalidate(collection string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	for _, key := range s.cache.Keys() {
		entry, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		if entry.collection == "" || entry.collection == collection {
			s.cache.Remove(key)
		}
	}
}

// CacheLen reports the number of cached queries
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	for i, r := range src.Results {
		r.HeaderHierarchy = append([]string(nil), r.HeaderHierarchy...)
		dst.Results[i] = r
	}
	return &dst
}

// computeQueryHash keys the cache on everything that changes the answer
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(req.Collection)
	data.WriteString("|")
	data.WriteString(strconv.Itoa(req.Limit))
	data.WriteString("|")
	data.WriteString(strconv.FormatFloat(req.MinScore, 'f', 4, 64))
	return sha256.Sum256([]byte(data.String()))
}
