package strategy

import (
	"fmt"

	"github.com/dshills/vecsync-mcp/internal/chunker"
	"github.com/dshills/vecsync-mcp/pkg/types"
)

const (
	// DefaultHeaderThreshold is the heading count that selects structure
	DefaultHeaderThreshold = 2

	// DefaultCodeFenceThreshold is the fenced block count that selects structure
	DefaultCodeFenceThreshold = 1
)

// Config configures automatic strategy selection
type Config struct {
	HeaderThreshold    int
	CodeFenceThreshold int
	CompareAmbiguous   bool
	Weights            Weights
}

// DefaultConfig returns the default selector configuration
func DefaultConfig() Config {
	return Config{
		HeaderThreshold:    DefaultHeaderThreshold,
		CodeFenceThreshold: DefaultCodeFenceThreshold,
		CompareAmbiguous:   true,
		Weights:            DefaultWeights(),
	}
}

// Selection is the chunking chosen for one document
type Selection struct {
	Strategy chunker.Strategy
	Result   *chunker.Result
	Reason   string

	// Set only when both strategies were compared
	Compared    bool
	Score       Score
	Alternative Score
}

// Selector resolves the chunking strategy for documents
type Selector struct {
	chunker *chunker.Chunker
	scorer  *Scorer
	cfg     Config
}

// New creates a Selector over c
func New(c *chunker.Chunker, cfg Config) *Selector {
	if cfg.HeaderThreshold <= 0 {
		cfg.HeaderThreshold = DefaultHeaderThreshold
	}
	if cfg.CodeFenceThreshold <= 0 {
		cfg.CodeFenceThreshold = DefaultCodeFenceThreshold
	}
	return &Selector{
		chunker: c,
		scorer:  NewScorer(cfg.Weights),
		cfg:     cfg,
	}
}

// Scorer returns the scorer used for ambiguous documents
func (s *Selector) Scorer() *Scorer {
	return s.scorer
}

// Select chunks doc with mode, resolving auto first
func (s *Selector) Select(doc types.Document, mode chunker.Strategy) (*Selection, error) {
	switch mode {
	case chunker.StrategyStructure, chunker.StrategyFixed:
		return s.run(doc, mode, "configured")
	case chunker.StrategyAuto, "":
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", mode)
	}

	sig := chunker.Analyze(doc.Content)
	switch {
	case sig.Headings >= s.cfg.HeaderThreshold:
		return s.run(doc, chunker.StrategyStructure, fmt.Sprintf("%d headings", sig.Headings))
	case sig.CodeBlocks >= s.cfg.CodeFenceThreshold:
		return s.run(doc, chunker.StrategyStructure, fmt.Sprintf("%d code blocks", sig.CodeBlocks))
	case !sig.HasStructure():
		return s.run(doc, chunker.StrategyFixed, "no structure")
	case !s.cfg.CompareAmbiguous:
		return s.run(doc, chunker.StrategyStructure, "ambiguous")
	}

	return s.compare(doc)
}

func (s *Selector) run(doc types.Document, strategy chunker.Strategy, reason string) (*Selection, error) {
	res, err := s.chunker.Chunk(doc, strategy)
	if err != nil {
		return nil, err
	}
	return &Selection{Strategy: strategy, Result: res, Reason: reason}, nil
}

// compare runs both strategies independently and keeps the better one
func (s *Selector) compare(doc types.Document) (*Selection, error) {
	structured, err := s.chunker.Chunk(doc, chunker.StrategyStructure)
	if err != nil {
		return nil, err
	}
	fixed, err := s.chunker.Chunk(doc, chunker.StrategyFixed)
	if err != nil {
		return nil, err
	}

	ss := s.scorer.Score(doc.Content, structured.Chunks)
	fs := s.scorer.Score(doc.Content, fixed.Chunks)

	if fs.Total > ss.Total {
		return &Selection{
			Strategy:    chunker.StrategyFixed,
			Result:      fixed,
			Reason:      fmt.Sprintf("scored %.3f over %.3f", fs.Total, ss.Total),
			Compared:    true,
			Score:       fs,
			Alternative: ss,
		}, nil
	}
	return &Selection{
		Strategy:    chunker.StrategyStructure,
		Result:      structured,
		Reason:      fmt.Sprintf("scored %.3f over %.3f", ss.Total, fs.Total),
		Compared:    true,
		Score:       ss,
		Alternative: fs,
	}, nil
}
