package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ChunkType classifies the structural element a chunk was derived from
type ChunkType string

const (
	ChunkHeaderSection ChunkType = "header_section"
	ChunkCodeBlock     ChunkType = "code_block"
	ChunkTable         ChunkType = "table"
	ChunkList          ChunkType = "list"
	ChunkParagraph     ChunkType = "paragraph"
)

// ChunkNamespace is the UUIDv5 namespace for chunk ids
var ChunkNamespace = uuid.MustParse("8c5b7d2e-3f4a-5b6c-9d0e-1f2a3b4c5d6e")

// Chunk represents a retrievable unit of a source file
type Chunk struct {
	// Identification
	ID         string
	Collection string
	Path       string
	ChunkIndex int // zero-based, contiguous per file

	// Content
	Content     string
	ContentHash [32]byte // SHA-256 of Content
	SourceHash  [32]byte // SHA-256 of the whole file at chunking time

	// Structure
	ChunkType       ChunkType
	HeaderHierarchy []string // ancestor heading titles, outermost first
	ContainsCode    bool
	Language        string // best-effort, code blocks only

	// Overlap with neighbouring windows of the same segment
	OverlapSourceIDs []string
	OverlapPrefix    int // leading bytes repeated from the previous chunk

	// Location (byte offsets into the source)
	StartOffset int
	EndOffset   int
}

// ComputeContentHash computes the SHA-256 hash of the chunk content
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = HashString(c.Content)
}

// AssignID derives the deterministic chunk id. ComputeContentHash must run first.
func (c *Chunk) AssignID() {
	c.ID = ChunkID(c.Collection, c.Path, c.ChunkIndex, c.ContentHash)
}

// ChunkID returns the UUIDv5 for a chunk identity tuple
func ChunkID(collection, path string, index int, contentHash [32]byte) string {
	var b strings.Builder
	b.WriteString(collection)
	b.WriteByte(0)
	b.WriteString(path)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(index))
	b.WriteByte(0)
	b.WriteString(HexHash(contentHash))
	return uuid.NewSHA1(ChunkNamespace, []byte(b.String())).String()
}

// Hierarchy renders the header path as "A > B > C"
func (c *Chunk) Hierarchy() string {
	return strings.Join(c.HeaderHierarchy, " > ")
}

// Body returns the content without the prefix shared with the previous chunk
func (c *Chunk) Body() string {
	if c.OverlapPrefix <= 0 || c.OverlapPrefix > len(c.Content) {
		return c.Content
	}
	return c.Content[c.OverlapPrefix:]
}

// ValidateContent checks if the chunk content is valid
func (c *Chunk) ValidateContent() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.StartOffset < 0 || c.EndOffset < c.StartOffset {
		return errors.New("invalid chunk offsets")
	}

	if c.OverlapPrefix < 0 || c.OverlapPrefix > len(c.Content) {
		return errors.New("overlap prefix exceeds content")
	}

	return nil
}

// ValidateChunkType checks if the chunk type is valid
func (c *Chunk) ValidateChunkType() error {
	if !c.ChunkType.Valid() {
		return errors.New("invalid chunk type")
	}
	return nil
}

// Validate performs all validations
func (c *Chunk) Validate() error {
	if c.Collection == "" || c.Path == "" {
		return errors.New("chunk must belong to a collection and path")
	}
	if c.ChunkIndex < 0 {
		return errors.New("chunk index must be non-negative")
	}
	if err := c.ValidateContent(); err != nil {
		return err
	}
	return c.ValidateChunkType()
}

// Valid reports whether t is a known chunk type
func (t ChunkType) Valid() bool {
	switch t {
	case ChunkHeaderSection, ChunkCodeBlock, ChunkTable, ChunkList, ChunkParagraph:
		return true
	default:
		return false
	}
}

// Reconstruct concatenates chunk bodies in index order. For chunks produced
// from one file this reproduces the original text.
func Reconstruct(chunks []*Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Body())
	}
	return b.String()
}
