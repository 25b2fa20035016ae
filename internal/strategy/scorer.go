package strategy

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dshills/vecsync-mcp/internal/chunker"
	"github.com/dshills/vecsync-mcp/pkg/types"
)

// Weights are the relative importance of each score component
type Weights struct {
	Header   float64 `yaml:"header"`
	Code     float64 `yaml:"code"`
	Balance  float64 `yaml:"balance"`
	Metadata float64 `yaml:"metadata"`
	Language float64 `yaml:"language"`
}

// DefaultWeights returns the tuned default weights
func DefaultWeights() Weights {
	return Weights{
		Header:   0.30,
		Code:     0.25,
		Balance:  0.20,
		Metadata: 0.15,
		Language: 0.10,
	}
}

func (w Weights) sum() float64 {
	return w.Header + w.Code + w.Balance + w.Metadata + w.Language
}

// Validate rejects negative weights and an all-zero weight set
func (w Weights) Validate() error {
	for _, v := range []float64{w.Header, w.Code, w.Balance, w.Metadata, w.Language} {
		if v < 0 || math.IsNaN(v) {
			return errors.New("strategy weights must be non-negative")
		}
	}
	if w.sum() == 0 {
		return errors.New("at least one strategy weight must be positive")
	}
	return nil
}

// Score is the quality rating of one chunking
type Score struct {
	Header   float64 `json:"header"`
	Code     float64 `json:"code"`
	Balance  float64 `json:"balance"`
	Metadata float64 `json:"metadata"`
	Language float64 `json:"language"`
	Total    float64 `json:"total"`
}

// Scorer rates chunkings. It holds no state between calls.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer. Zero weights select the defaults.
func NewScorer(w Weights) *Scorer {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Scorer{weights: w}
}

// Weights returns the weights in use
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score rates chunks produced from content
func (s *Scorer) Score(content string, chunks []*types.Chunk) Score {
	sig := chunker.Analyze(content)
	sc := Score{
		Header:   headerPreservation(sig.Headings, chunks),
		Code:     codeIntegrity(sig.CodeBlocks, chunks),
		Balance:  sizeBalance(chunks),
		Metadata: metadataRichness(chunks),
		Language: languageAccuracy(chunks),
	}

	w := s.weights
	if total := w.sum(); total > 0 {
		sc.Total = (w.Header*sc.Header + w.Code*sc.Code + w.Balance*sc.Balance +
			w.Metadata*sc.Metadata + w.Language*sc.Language) / total
	}
	return sc
}

// headerPreservation is the share of document headings that survive as a
// distinct chunk hierarchy
func headerPreservation(headings int, chunks []*types.Chunk) float64 {
	if headings == 0 {
		return 1
	}
	paths := make(map[string]struct{})
	for _, c := range chunks {
		if len(c.HeaderHierarchy) > 0 {
			paths[c.Hierarchy()] = struct{}{}
		}
	}
	return math.Min(1, float64(len(paths))/float64(headings))
}

// codeIntegrity is the share of fenced blocks that some chunk holds whole
func codeIntegrity(blocks int, chunks []*types.Chunk) float64 {
	if blocks == 0 {
		return 1
	}
	whole := 0
	for _, c := range chunks {
		if !c.ContainsCode {
			continue
		}
		whole += chunker.Analyze(c.Content).CodeBlocks
	}
	return math.Min(1, float64(whole)/float64(blocks))
}

// sizeBalance is one minus the coefficient of variation of chunk lengths
func sizeBalance(chunks []*types.Chunk) float64 {
	if len(chunks) <= 1 {
		return 1
	}
	sizes := make([]float64, len(chunks))
	for i, c := range chunks {
		sizes[i] = float64(utf8.RuneCountInString(c.Content))
	}
	sort.Float64s(sizes)

	var mean float64
	for _, v := range sizes {
		mean += v
	}
	mean /= float64(len(sizes))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, v := range sizes {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(sizes))

	return math.Max(0, 1-math.Sqrt(variance)/mean)
}

// metadataRichness averages, per chunk, how many of hierarchy, a specific
// chunk type and a code language are present
func metadataRichness(chunks []*types.Chunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	fields := 0
	for _, c := range chunks {
		if len(c.HeaderHierarchy) > 0 {
			fields++
		}
		if c.ChunkType != types.ChunkParagraph {
			fields++
		}
		if !c.ContainsCode || c.Language != "" {
			fields++
		}
	}
	return float64(fields) / float64(3*len(chunks))
}

// languageAccuracy rates language tags of code chunks: none is 0, a tag the
// grammar rejects is 0.25, anything else is 1
func languageAccuracy(chunks []*types.Chunk) float64 {
	var n int
	var total float64
	for _, c := range chunks {
		if !c.ContainsCode {
			continue
		}
		n++
		switch {
		case c.Language == "":
		case chunker.VerifyLanguage(c.Language, fencedBody(c.Body())) == chunker.VerdictInvalid:
			total += 0.25
		default:
			total++
		}
	}
	if n == 0 {
		return 1
	}
	return total / float64(n)
}

// fencedBody strips the opening and closing fence lines of a code block
func fencedBody(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") && !strings.HasPrefix(s, "~~~") {
		return s
	}
	fence := s[:3]
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	if i := strings.LastIndexByte(s, '\n'); i >= 0 && strings.HasPrefix(strings.TrimSpace(s[i+1:]), fence) {
		s = s[:i+1]
	} else if strings.HasPrefix(strings.TrimSpace(s), fence) {
		s = ""
	}
	return s
}
