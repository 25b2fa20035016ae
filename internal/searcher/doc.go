// Package searcher answers similarity queries over synced collections.
//
// A query is embedded through the same vector index the sync engine writes
// to, the k nearest chunk vectors are fetched (optionally scoped to one
// collection and cut at a similarity threshold) and each hit is hydrated
// from the chunk table with its content, type, header hierarchy and
// language.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, index, 0, logger)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:      "how do I roll back a deployment",
//	    Collection: "runbooks",
//	    Limit:      5,
//	    MinScore:   0.3,
//	    UseCache:   true,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s#%d (%.2f)\n", r.Rank, r.Path, r.ChunkIndex, r.Score)
//	}
//
// # Caching
//
// Responses are kept in an LRU cache with a per-request TTL. Cached
// responses are deep copies, so callers may modify what they receive.
// Invalidate drops every cached query that could contain chunks of a
// collection; the sync engine calls it through Syncer.OnChange after each
// run that touched the index.
//
// Index hits whose chunk row no longer exists are skipped and counted in
// SearchResponse.Missing.
package searcher
