package types

// SearchResult represents a single search result with relevance information
type SearchResult struct {
	// Identification
	ChunkID    string
	Rank       int // Position in result set (1-based)
	Collection string
	Path       string
	ChunkIndex int

	// Scoring
	Score float64 // cosine similarity reported by the index

	// Metadata
	ChunkType       ChunkType
	HeaderHierarchy []string
	Language        string
	Content         string
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.ChunkID == "" {
		return ErrInvalidChunkID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.Score < -1 || sr.Score > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.Path == "" {
		return ErrMissingPath
	}

	if sr.Content == "" {
		return ErrEmptyContent
	}

	return nil
}
