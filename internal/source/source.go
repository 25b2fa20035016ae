// Package source lists the live files of each collection. The sync engine
// only reads from a Source; it never writes back.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/vecsync-mcp/pkg/types"
)

// ErrUnknownCollection is returned for a collection the source does not hold
var ErrUnknownCollection = errors.New("unknown collection")

// DefaultExtensions are the file types indexed by DirSource
var DefaultExtensions = []string{".md", ".markdown", ".mdx", ".txt"}

// Source enumerates collections and their live files
type Source interface {
	ListCollections(ctx context.Context) ([]string, error)
	ListFiles(ctx context.Context, collection string) ([]types.FileRecord, error)
}

// DirSource treats each subdirectory of Root as a collection. Files are
// found recursively, hidden entries are skipped and paths are
// slash-separated relative to the collection directory.
type DirSource struct {
	Root       string
	Extensions []string
}

// NewDirSource creates a source rooted at root. Nil extensions select
// DefaultExtensions.
func NewDirSource(root string, extensions []string) *DirSource {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	norm := make([]string, len(extensions))
	for i, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		norm[i] = ext
	}
	return &DirSource{Root: root, Extensions: norm}
}

func (d *DirSource) ListCollections(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("read collections root: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !hidden(e.Name()) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func (d *DirSource) ListFiles(ctx context.Context, collection string) ([]types.FileRecord, error) {
	if collection == "" || hidden(collection) || strings.ContainsAny(collection, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	root := filepath.Join(d.Root, collection)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	var records []types.FileRecord
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && hidden(entry.Name()) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !d.accepts(entry.Name()) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rec := types.NewFileRecord(collection, filepath.ToSlash(rel), content)
		if fi, err := entry.Info(); err == nil {
			rec.ModTime = fi.ModTime()
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (d *DirSource) accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range d.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// MemorySource holds collections in memory. It backs tests and embedders
// of the engine that own their documents.
type MemorySource struct {
	mu    sync.RWMutex
	files map[string]map[string][]byte
}

// NewMemorySource returns an empty source
func NewMemorySource() *MemorySource {
	return &MemorySource{files: make(map[string]map[string][]byte)}
}

// Put creates or replaces a file, creating the collection on first use
func (m *MemorySource) Put(collection, path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files[collection] == nil {
		m.files[collection] = make(map[string][]byte)
	}
	m.files[collection][path] = []byte(content)
}

// Remove deletes a file
func (m *MemorySource) Remove(collection, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files[collection], path)
}

// AddCollection registers an empty collection
func (m *MemorySource) AddCollection(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files[collection] == nil {
		m.files[collection] = make(map[string][]byte)
	}
}

// DropCollection forgets a collection and its files
func (m *MemorySource) DropCollection(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, collection)
}

func (m *MemorySource) ListCollections(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for c := range m.files {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemorySource) ListFiles(ctx context.Context, collection string) ([]types.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files, ok := m.files[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	out := make([]types.FileRecord, 0, len(files))
	for path, content := range files {
		out = append(out, types.NewFileRecord(collection, path, append([]byte(nil), content...)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
