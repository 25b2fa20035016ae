package types

import "time"

// FileRecord is a source file as observed in a collection
type FileRecord struct {
	Collection  string
	Path        string // slash-separated, relative to the collection root
	Content     []byte
	ContentHash [32]byte
	ModTime     time.Time
}

// NewFileRecord builds a record and hashes its content
func NewFileRecord(collection, path string, content []byte) FileRecord {
	return FileRecord{
		Collection:  collection,
		Path:        path,
		Content:     content,
		ContentHash: HashContent(content),
	}
}

// Document returns the chunker input for this record
func (f FileRecord) Document() Document {
	return Document{
		Collection: f.Collection,
		Path:       f.Path,
		Content:    string(f.Content),
		SourceHash: f.ContentHash,
	}
}

// Document is the text handed to the chunking engine
type Document struct {
	Collection string
	Path       string
	Content    string
	SourceHash [32]byte
}
