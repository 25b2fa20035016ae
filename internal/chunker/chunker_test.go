package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vecsync-mcp/pkg/types"
)

func doc(content string) types.Document {
	return types.Document{
		Collection: "docs",
		Path:       "guide.md",
		Content:    content,
		SourceHash: types.HashString(content),
	}
}

func chunkTypes(chunks []*types.Chunk) []types.ChunkType {
	out := make([]types.ChunkType, len(chunks))
	for i, c := range chunks {
		out[i] = c.ChunkType
	}
	return out
}

func TestNew(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultConfig(), c.Config())

	c = New(Config{TargetChunkSize: 100, OverlapSize: 150})
	assert.Equal(t, 50, c.Config().OverlapSize, "overlap is clamped below the target")

	c = New(Config{TargetChunkSize: 4, OverlapSize: -1})
	assert.Equal(t, MinTargetChunkSize, c.Config().TargetChunkSize)
	assert.Zero(t, c.Config().OverlapSize)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("Structure")
	require.NoError(t, err)
	assert.Equal(t, StrategyStructure, s)

	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyAuto, s)

	_, err = ParseStrategy("semantic")
	assert.Error(t, err)
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New(DefaultConfig())
	for _, content := range []string{"", "   ", "\n\n\t\n"} {
		for _, strategy := range []Strategy{StrategyStructure, StrategyFixed} {
			res, err := c.Chunk(doc(content), strategy)
			require.NoError(t, err)
			assert.Empty(t, res.Chunks, "strategy %s content %q", strategy, content)
		}
	}
}

func TestChunk_AutoMustBeResolved(t *testing.T) {
	_, err := New(DefaultConfig()).Chunk(doc("text"), StrategyAuto)
	assert.ErrorIs(t, err, ErrUnresolvedStrategy)
}

func TestChunk_StructureSegments(t *testing.T) {
	content := "# Title\n\nIntro text.\n\n## Install\n\nRun it.\n\n```go\nfunc main() {}\n```\n\n" +
		"## Usage\n\n- one\n- two\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"

	res, err := New(DefaultConfig()).Chunk(doc(content), StrategyStructure)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	assert.Equal(t, []types.ChunkType{
		types.ChunkHeaderSection,
		types.ChunkHeaderSection,
		types.ChunkCodeBlock,
		types.ChunkHeaderSection,
		types.ChunkList,
		types.ChunkTable,
	}, chunkTypes(res.Chunks))

	assert.Equal(t, []string{"Title"}, res.Chunks[0].HeaderHierarchy)
	assert.Equal(t, []string{"Title", "Install"}, res.Chunks[1].HeaderHierarchy)
	assert.Equal(t, []string{"Title", "Install"}, res.Chunks[2].HeaderHierarchy)
	assert.Equal(t, []string{"Title", "Usage"}, res.Chunks[3].HeaderHierarchy)
	assert.Equal(t, []string{"Title", "Usage"}, res.Chunks[5].HeaderHierarchy)

	code := res.Chunks[2]
	assert.Equal(t, "go", code.Language)
	assert.True(t, code.ContainsCode)
	assert.Equal(t, "```go\nfunc main() {}\n```\n\n", code.Content)

	assert.Equal(t, "| a | b |\n|---|---|\n| 1 | 2 |\n", res.Chunks[5].Content)
	assert.Equal(t, content, types.Reconstruct(res.Chunks))
}

func TestChunk_IndicesOffsetsAndIDs(t *testing.T) {
	content := "intro\n\n# A\n\nbody\n\n## B\n\n```\nx := 1\n```\n"
	res, err := New(DefaultConfig()).Chunk(doc(content), StrategyStructure)
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)

	offset := 0
	for i, c := range res.Chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, offset, c.StartOffset)
		assert.Equal(t, content[c.StartOffset:c.EndOffset], c.Content)
		assert.Equal(t, types.HashString(c.Content), c.ContentHash)
		assert.Equal(t, types.ChunkID("docs", "guide.md", i, c.ContentHash), c.ID)
		assert.Equal(t, types.HashString(content), c.SourceHash)
		require.NoError(t, c.Validate())
		offset = c.EndOffset
	}
	assert.Equal(t, len(content), offset)
	assert.Equal(t, types.ChunkParagraph, res.Chunks[0].ChunkType)
	assert.Nil(t, res.Chunks[0].HeaderHierarchy)
}

func TestChunk_Deterministic(t *testing.T) {
	content := strings.Repeat("# Section\n\nSome words about things. ", 40)
	c := New(Config{TargetChunkSize: 120, OverlapSize: 20})

	a, err := c.Chunk(doc(content), StrategyStructure)
	require.NoError(t, err)
	b, err := c.Chunk(doc(content), StrategyStructure)
	require.NoError(t, err)

	require.Equal(t, len(a.Chunks), len(b.Chunks))
	for i := range a.Chunks {
		assert.Equal(t, a.Chunks[i].ID, b.Chunks[i].ID)
		assert.Equal(t, a.Chunks[i].Content, b.Chunks[i].Content)
	}
}

func TestChunk_HeaderStack(t *testing.T) {
	content := "# A\n## B\n### C\n## D\n# E\n"
	res, err := New(DefaultConfig()).Chunk(doc(content), StrategyStructure)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 5)

	assert.Equal(t, []string{"A"}, res.Chunks[0].HeaderHierarchy)
	assert.Equal(t, []string{"A", "B"}, res.Chunks[1].HeaderHierarchy)
	assert.Equal(t, []string{"A", "B", "C"}, res.Chunks[2].HeaderHierarchy)
	assert.Equal(t, []string{"A", "D"}, res.Chunks[3].HeaderHierarchy)
	assert.Equal(t, []string{"E"}, res.Chunks[4].HeaderHierarchy)
}

func TestChunk_HeadingTitles(t *testing.T) {
	content := "# Café ##\n\n## C#\n\n#hashtag is prose\n"
	res, err := New(DefaultConfig()).Chunk(doc(content), StrategyStructure)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)

	assert.Equal(t, []string{"Café"}, res.Chunks[0].HeaderHierarchy)
	assert.Equal(t, []string{"Café", "C#"}, res.Chunks[1].HeaderHierarchy)
	assert.Contains(t, res.Chunks[1].Content, "#hashtag is prose")
}

func TestChunk_UnterminatedFence(t *testing.T) {
	content := "# A\n\ntext\n\n```python\nprint(1)\n"
	res, err := New(DefaultConfig()).Chunk(doc(content), StrategyStructure)
	require.NoError(t, err)

	require.Len(t, res.Chunks, 1)
	assert.Equal(t, types.ChunkHeaderSection, res.Chunks[0].ChunkType)
	assert.Equal(t, content, res.Chunks[0].Content)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "guide.md", res.Warnings[0].Path)
	assert.Equal(t, 11, res.Warnings[0].Offset)
	assert.Contains(t, res.Warnings[0].Error(), "unterminated code fence")
}

func TestChunk_FenceClosing(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "shorter fence does not close",
			content: "````\ncode\n```\nstill code\n````\n",
			want:    "````\ncode\n```\nstill code\n````\n",
		},
		{
			name:    "backticks do not close tildes",
			content: "~~~\na\n```\n~~~\nafter\n",
			want:    "~~~\na\n```\n~~~\n",
		},
		{
			name:    "heading inside fence is code",
			content: "```\n# not a heading\n```\n",
			want:    "```\n# not a heading\n```\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(DefaultConfig()).Chunk(doc(tt.content), StrategyStructure)
			require.NoError(t, err)
			require.NotEmpty(t, res.Chunks)
			assert.Equal(t, types.ChunkCodeBlock, res.Chunks[0].ChunkType)
			assert.Equal(t, tt.want, res.Chunks[0].Content)
			assert.Empty(t, res.Warnings)
		})
	}
}

func TestChunk_OversizedSegmentIsWindowed(t *testing.T) {
	content := "# H\n" + strings.Repeat("word ", 100)
	res, err := New(Config{TargetChunkSize: 50, OverlapSize: 10}).Chunk(doc(content), StrategyStructure)
	require.NoError(t, err)
	require.Greater(t, len(res.Chunks), 2)

	for i, c := range res.Chunks {
		assert.Equal(t, types.ChunkHeaderSection, c.ChunkType)
		assert.Equal(t, []string{"H"}, c.HeaderHierarchy)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 50)

		switch i {
		case 0:
			assert.Zero(t, c.OverlapPrefix)
			assert.Equal(t, []string{res.Chunks[1].ID}, c.OverlapSourceIDs)
		case len(res.Chunks) - 1:
			assert.Positive(t, c.OverlapPrefix)
			assert.Equal(t, []string{res.Chunks[i-1].ID}, c.OverlapSourceIDs)
		default:
			assert.Positive(t, c.OverlapPrefix)
			assert.Equal(t, []string{res.Chunks[i-1].ID, res.Chunks[i+1].ID}, c.OverlapSourceIDs)
		}
	}
	assert.Equal(t, content, types.Reconstruct(res.Chunks))
}

func TestChunk_ShortSegmentsHaveNoOverlap(t *testing.T) {
	res, err := New(DefaultConfig()).Chunk(doc("# A\n\nx\n\n# B\n\ny\n"), StrategyStructure)
	require.NoError(t, err)
	for _, c := range res.Chunks {
		assert.Empty(t, c.OverlapSourceIDs)
		assert.Zero(t, c.OverlapPrefix)
	}
}

func TestChunk_Fixed(t *testing.T) {
	content := "# A\n\n```go\nx\n```\n"
	res, err := New(DefaultConfig()).Chunk(doc(content), StrategyFixed)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)

	c := res.Chunks[0]
	assert.Equal(t, types.ChunkParagraph, c.ChunkType)
	assert.Nil(t, c.HeaderHierarchy)
	assert.True(t, c.ContainsCode)
	assert.Equal(t, content, c.Content)
}

func TestChunk_InlineCode(t *testing.T) {
	res, err := New(DefaultConfig()).Chunk(doc("Call `Sync()` first.\n"), StrategyStructure)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.True(t, res.Chunks[0].ContainsCode)
	assert.Equal(t, types.ChunkParagraph, res.Chunks[0].ChunkType)
}

func TestChunk_Reconstruction(t *testing.T) {
	inputs := []string{
		"\n\n# Leading blanks\n\ntext\n",
		"no trailing newline",
		"- a\n- b\n\n  continued\n\nafter list\n",
		"| x |\n|---|\n| 1 |\ntext after\n",
		strings.Repeat("héllo wörld ", 300),
		strings.Repeat("# T\n\n```\n"+strings.Repeat("code line\n", 40)+"```\n\n", 3),
		"# A\r\n\r\nwindows line endings\r\n",
	}

	for _, size := range []Config{{TargetChunkSize: 64, OverlapSize: 16}, DefaultConfig()} {
		c := New(size)
		for i, in := range inputs {
			for _, strategy := range []Strategy{StrategyStructure, StrategyFixed} {
				res, err := c.Chunk(doc(in), strategy)
				require.NoError(t, err)
				assert.Equal(t, in, types.Reconstruct(res.Chunks), "input %d strategy %s", i, strategy)
				for _, ch := range res.Chunks {
					assert.True(t, utf8.ValidString(ch.Content))
					assert.NotEmpty(t, ch.Content)
				}
			}
		}
	}
}

func TestChunk_ListContinuation(t *testing.T) {
	content := "- a\n- b\n\n  continued\n\nafter list\n"
	res, err := New(DefaultConfig()).Chunk(doc(content), StrategyStructure)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, types.ChunkList, res.Chunks[0].ChunkType)
	assert.Equal(t, "- a\n- b\n\n  continued\n\n", res.Chunks[0].Content)
	assert.Equal(t, types.ChunkParagraph, res.Chunks[1].ChunkType)
}

func TestAnalyze(t *testing.T) {
	sig := Analyze("# A\n\n```\n# not counted\n```\n\n## B\n\n- x\n\n| a |\n|---|\n\nplain\n")
	assert.Equal(t, 2, sig.Headings)
	assert.Equal(t, 1, sig.CodeBlocks)
	assert.Equal(t, 1, sig.Lists)
	assert.Equal(t, 1, sig.Tables)
	assert.Equal(t, 1, sig.Paragraphs)
	assert.True(t, sig.HasStructure())

	sig = Analyze("just some prose\n\nmore prose\n")
	assert.False(t, sig.HasStructure())
	assert.Equal(t, 1, sig.Paragraphs)

	sig = Analyze("```\nopen\n")
	assert.Equal(t, 1, sig.UnterminatedFences)
	assert.Zero(t, sig.CodeBlocks)
}

// describe renders chunks in a stable, reviewable text form
func describe(chunks []*types.Chunk) []byte {
	var b strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&b, "#%d %s %q lang=%q code=%t overlap=%d [%d,%d)\n",
			c.ChunkIndex, c.ChunkType, c.Hierarchy(), c.Language, c.ContainsCode,
			c.OverlapPrefix, c.StartOffset, c.EndOffset)
		b.WriteString(c.Content)
		b.WriteString("---\n")
	}
	return []byte(b.String())
}

func TestChunk_Golden(t *testing.T) {
	content := "# Guide\n\nIntro.\n\n```sh\necho hi\n```\n\n## Steps\n\n1. one\n2. two\n"
	res, err := New(DefaultConfig()).Chunk(doc(content), StrategyStructure)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "structure_basic", describe(res.Chunks))
}
