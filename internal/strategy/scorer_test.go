package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vecsync-mcp/internal/chunker"
	"github.com/dshills/vecsync-mcp/pkg/types"
)

func chunksFor(t *testing.T, content string, strategy chunker.Strategy) []*types.Chunk {
	t.Helper()
	res, err := chunker.New(chunker.Config{TargetChunkSize: 60, OverlapSize: 10}).Chunk(doc(content), strategy)
	require.NoError(t, err)
	return res.Chunks
}

func assertInRange(t *testing.T, s Score) {
	t.Helper()
	for _, v := range []float64{s.Header, s.Code, s.Balance, s.Metadata, s.Language, s.Total} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

const sample = "# Guide\n\nSome introduction text for the guide.\n\n## Build\n\n" +
	"```json\n{\"a\": 1}\n```\n\n## Run\n\n- first step\n- second step\n"

func TestScore_StructureBeatsFixedOnMarkdown(t *testing.T) {
	s := NewScorer(Weights{})
	structured := s.Score(sample, chunksFor(t, sample, chunker.StrategyStructure))
	fixed := s.Score(sample, chunksFor(t, sample, chunker.StrategyFixed))

	assertInRange(t, structured)
	assertInRange(t, fixed)

	assert.Equal(t, 1.0, structured.Header)
	assert.Equal(t, 0.0, fixed.Header)
	assert.Equal(t, 1.0, structured.Code)
	assert.Equal(t, 1.0, structured.Language)
	assert.Greater(t, structured.Total, fixed.Total)
}

func TestScore_OrderIndependent(t *testing.T) {
	chunks := chunksFor(t, sample, chunker.StrategyStructure)
	reversed := make([]*types.Chunk, len(chunks))
	for i, c := range chunks {
		reversed[len(chunks)-1-i] = c
	}

	s := NewScorer(DefaultWeights())
	assert.Equal(t, s.Score(sample, chunks), s.Score(sample, reversed))
}

func TestScore_Stateless(t *testing.T) {
	s := NewScorer(DefaultWeights())
	chunks := chunksFor(t, sample, chunker.StrategyStructure)
	first := s.Score(sample, chunks)
	s.Score("other text", nil)
	assert.Equal(t, first, s.Score(sample, chunks))
}

func TestScore_LanguageAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		chunk *types.Chunk
		want  float64
	}{
		{
			name:  "no code",
			chunk: &types.Chunk{Content: "prose", ChunkType: types.ChunkParagraph},
			want:  1,
		},
		{
			name:  "missing language",
			chunk: &types.Chunk{Content: "```\nx\n```\n", ChunkType: types.ChunkCodeBlock, ContainsCode: true},
			want:  0,
		},
		{
			name: "rejected by grammar",
			chunk: &types.Chunk{Content: "```json\n{\"a\": \n```\n", ChunkType: types.ChunkCodeBlock,
				ContainsCode: true, Language: "json"},
			want: 0.25,
		},
		{
			name: "valid",
			chunk: &types.Chunk{Content: "```json\n{\"a\": 1}\n```\n", ChunkType: types.ChunkCodeBlock,
				ContainsCode: true, Language: "json"},
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, languageAccuracy([]*types.Chunk{tt.chunk}))
		})
	}
}

func TestSizeBalance(t *testing.T) {
	even := []*types.Chunk{{Content: "aaaa"}, {Content: "bbbb"}}
	assert.Equal(t, 1.0, sizeBalance(even))

	uneven := []*types.Chunk{{Content: "a"}, {Content: "bbbbbbbbbbbbbbbbbbbb"}}
	assert.Less(t, sizeBalance(uneven), 0.5)

	assert.Equal(t, 1.0, sizeBalance(nil))
}

func TestFencedBody(t *testing.T) {
	assert.Equal(t, "{\"a\": 1}\n", fencedBody("```json\n{\"a\": 1}\n```\n\n"))
	assert.Equal(t, "", fencedBody("```\n```"))
	assert.Equal(t, "plain", fencedBody("plain\n"))
}

func TestWeights_Validate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())
	assert.Error(t, Weights{}.Validate())
	assert.Error(t, Weights{Header: -1, Code: 1}.Validate())
}

func TestScore_ZeroWeightComponents(t *testing.T) {
	s := NewScorer(Weights{Header: 1})
	sc := s.Score(sample, chunksFor(t, sample, chunker.StrategyFixed))
	assert.Equal(t, sc.Header, sc.Total)
}
