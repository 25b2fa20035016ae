package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/vecsync-mcp/pkg/types"
)

const (
	// DefaultTargetChunkSize is the target maximum chunk size in characters
	DefaultTargetChunkSize = 1000

	// DefaultOverlapSize is the number of characters shared by consecutive windows
	DefaultOverlapSize = 100

	// MinTargetChunkSize keeps windows large enough to make progress
	MinTargetChunkSize = 16
)

// Strategy selects how a document is split
type Strategy string

const (
	StrategyStructure Strategy = "structure" // markdown structure, then size refinement
	StrategyFixed     Strategy = "fixed"     // size windows over the whole text
	StrategyAuto      Strategy = "auto"      // resolved by the strategy selector
)

// ErrUnresolvedStrategy is returned when auto reaches the chunker
var ErrUnresolvedStrategy = errors.New("auto strategy must be resolved before chunking")

// ParseStrategy converts a configuration string into a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyStructure:
		return StrategyStructure, nil
	case StrategyFixed:
		return StrategyFixed, nil
	case StrategyAuto, "":
		return StrategyAuto, nil
	default:
		return "", fmt.Errorf("unknown chunking strategy %q", s)
	}
}

// Config holds the size parameters of the chunker. Sizes are in characters.
type Config struct {
	TargetChunkSize int
	OverlapSize     int
}

// DefaultConfig returns the default chunker configuration
func DefaultConfig() Config {
	return Config{
		TargetChunkSize: DefaultTargetChunkSize,
		OverlapSize:     DefaultOverlapSize,
	}
}

// Normalize fills defaults and clamps the overlap below the target size
func (c Config) Normalize() Config {
	if c.TargetChunkSize <= 0 {
		c.TargetChunkSize = DefaultTargetChunkSize
	}
	if c.TargetChunkSize < MinTargetChunkSize {
		c.TargetChunkSize = MinTargetChunkSize
	}
	if c.OverlapSize < 0 {
		c.OverlapSize = 0
	}
	if c.OverlapSize >= c.TargetChunkSize {
		c.OverlapSize = c.TargetChunkSize / 2
	}
	return c
}

// Result is the output of one chunking run
type Result struct {
	Strategy Strategy
	Chunks   []*types.Chunk
	Warnings []*types.ChunkingError
}

// Chunker splits documents into retrievable chunks
type Chunker struct {
	cfg Config
}

// New creates a new Chunker instance
func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg.Normalize()}
}

// Config returns the effective configuration
func (c *Chunker) Config() Config {
	return c.cfg
}

// Chunk splits doc with a concrete strategy. Chunking never drops content:
// dropping each chunk's overlap prefix and concatenating the chunks in index
// order reproduces doc.Content.
func (c *Chunker) Chunk(doc types.Document, strategy Strategy) (*Result, error) {
	res := &Result{Strategy: strategy}

	var segs []segment
	switch strategy {
	case StrategyStructure:
		scan := scanStructure(doc.Content)
		segs = scan.segments
		for _, w := range scan.warnings {
			w.Path = doc.Path
			res.Warnings = append(res.Warnings, w)
		}
	case StrategyFixed:
		segs = wholeText(doc.Content)
	case StrategyAuto:
		return nil, ErrUnresolvedStrategy
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", strategy)
	}

	res.Chunks = c.refine(doc, segs)
	return res, nil
}

// refine applies size refinement and assigns indices, hashes and ids
func (c *Chunker) refine(doc types.Document, segs []segment) []*types.Chunk {
	chunks := make([]*types.Chunk, 0, len(segs))
	groups := make([][2]int, 0, len(segs)) // [first, last] chunk index per segment

	for _, seg := range segs {
		text := doc.Content[seg.start:seg.end]
		first := len(chunks)
		for _, w := range splitWindows(text, c.cfg.TargetChunkSize, c.cfg.OverlapSize) {
			content := text[w.start:w.end]
			chunks = append(chunks, &types.Chunk{
				Collection:      doc.Collection,
				Path:            doc.Path,
				Content:         content,
				SourceHash:      doc.SourceHash,
				ChunkType:       seg.kind,
				HeaderHierarchy: append([]string(nil), seg.hierarchy...),
				ContainsCode:    containsCode(seg.kind, content),
				Language:        seg.language,
				OverlapPrefix:   w.overlap,
				StartOffset:     seg.start + w.start,
				EndOffset:       seg.start + w.end,
			})
		}
		groups = append(groups, [2]int{first, len(chunks) - 1})
	}

	for i, ch := range chunks {
		ch.ChunkIndex = i
		ch.ComputeContentHash()
		ch.AssignID()
	}

	for _, g := range groups {
		if g[1] <= g[0] {
			continue
		}
		for i := g[0]; i <= g[1]; i++ {
			var ids []string
			if i > g[0] {
				ids = append(ids, chunks[i-1].ID)
			}
			if i < g[1] {
				ids = append(ids, chunks[i+1].ID)
			}
			chunks[i].OverlapSourceIDs = ids
		}
	}

	return chunks
}

var inlineCode = regexp.MustCompile("`[^`\n]+`")

func containsCode(kind types.ChunkType, content string) bool {
	return kind == types.ChunkCodeBlock || inlineCode.MatchString(content) ||
		strings.Contains(content, "```") || strings.Contains(content, "~~~")
}

// wholeText treats the document as a single paragraph segment
func wholeText(text string) []segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []segment{{kind: types.ChunkParagraph, start: 0, end: len(text)}}
}
