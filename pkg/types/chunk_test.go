package types

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID_Deterministic(t *testing.T) {
	h := HashString("hello")

	a := ChunkID("docs", "a.md", 0, h)
	b := ChunkID("docs", "a.md", 0, h)
	assert.Equal(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	assert.NotEqual(t, a, ChunkID("docs", "a.md", 1, h))
	assert.NotEqual(t, a, ChunkID("docs", "b.md", 0, h))
	assert.NotEqual(t, a, ChunkID("other", "a.md", 0, h))
	assert.NotEqual(t, a, ChunkID("docs", "a.md", 0, HashString("world")))
}

func TestChunkID_SeparatorsPreventCollisions(t *testing.T) {
	h := HashString("x")
	assert.NotEqual(t, ChunkID("ab", "c", 0, h), ChunkID("a", "bc", 0, h))
}

func TestChunk_AssignID(t *testing.T) {
	c := &Chunk{Collection: "docs", Path: "a.md", ChunkIndex: 2, Content: "text"}
	c.ComputeContentHash()
	c.AssignID()
	assert.Equal(t, HashString("text"), c.ContentHash)
	assert.Equal(t, ChunkID("docs", "a.md", 2, c.ContentHash), c.ID)
}

func TestChunk_Validate(t *testing.T) {
	valid := Chunk{Collection: "docs", Path: "a.md", Content: "x", ChunkType: ChunkParagraph, EndOffset: 1}
	assert.NoError(t, valid.Validate())

	noType := valid
	noType.ChunkType = "function"
	assert.Error(t, noType.Validate())

	empty := valid
	empty.Content = ""
	assert.Error(t, empty.Validate())

	badOverlap := valid
	badOverlap.OverlapPrefix = 5
	assert.Error(t, badOverlap.Validate())

	orphan := valid
	orphan.Path = ""
	assert.Error(t, orphan.Validate())
}

func TestReconstruct(t *testing.T) {
	chunks := []*Chunk{
		{Content: "hello wo"},
		{Content: "world", OverlapPrefix: 2},
		{Content: "# next\n"},
	}
	assert.Equal(t, "hello world# next\n", Reconstruct(chunks))
}

func TestHexHashRoundTrip(t *testing.T) {
	h := HashContent([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HexHash(h))

	back, err := ParseHexHash(HexHash(h))
	require.NoError(t, err)
	assert.Equal(t, h, back)

	_, err = ParseHexHash("abcd")
	assert.Error(t, err)
	_, err = ParseHexHash("zz")
	assert.Error(t, err)
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&IndexUnavailableError{Op: "ping", Err: cause})
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.ErrorIs(t, err, cause)

	var fse *FileSyncError
	wrapped := error(&FileSyncError{Path: "a.md", Op: "embed", Err: err})
	require.ErrorAs(t, wrapped, &fse)
	assert.Equal(t, "a.md", fse.Path)
	assert.ErrorIs(t, wrapped, ErrIndexUnavailable)
	assert.Equal(t, "a.md: embed: vector index unavailable: ping: connection refused", wrapped.Error())
}
