// Package detector compares a live file snapshot with the indexed snapshot
// of a collection. It performs no I/O.
package detector

import (
	"sort"

	"github.com/dshills/vecsync-mcp/pkg/types"
)

// ChangeSet classifies every path of both snapshots exactly once. Each list
// is sorted.
type ChangeSet struct {
	Added     []string `json:"added"`
	Modified  []string `json:"modified"`
	Deleted   []string `json:"deleted"`
	Unchanged []string `json:"unchanged"`
}

// HasChanges reports whether any file needs processing
func (c ChangeSet) HasChanges() bool {
	return len(c.Added)+len(c.Modified)+len(c.Deleted) > 0
}

// Pending returns the number of files a sync would process
func (c ChangeSet) Pending() int {
	return len(c.Added) + len(c.Modified) + len(c.Deleted)
}

// Total returns the number of distinct paths across both snapshots
func (c ChangeSet) Total() int {
	return c.Pending() + len(c.Unchanged)
}

// Detect classifies live files against the indexed path hashes. When live
// holds a path twice the first record wins.
func Detect(live []types.FileRecord, indexed map[string][32]byte) ChangeSet {
	var cs ChangeSet
	seen := make(map[string]struct{}, len(live))

	for _, f := range live {
		if _, dup := seen[f.Path]; dup {
			continue
		}
		seen[f.Path] = struct{}{}

		old, ok := indexed[f.Path]
		switch {
		case !ok:
			cs.Added = append(cs.Added, f.Path)
		case old != f.ContentHash:
			cs.Modified = append(cs.Modified, f.Path)
		default:
			cs.Unchanged = append(cs.Unchanged, f.Path)
		}
	}

	for path := range indexed {
		if _, ok := seen[path]; !ok {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	sort.Strings(cs.Added)
	sort.Strings(cs.Modified)
	sort.Strings(cs.Deleted)
	sort.Strings(cs.Unchanged)
	return cs
}

// Index maps live records by path, keeping the first record of duplicates
func Index(live []types.FileRecord) map[string]types.FileRecord {
	m := make(map[string]types.FileRecord, len(live))
	for _, f := range live {
		if _, ok := m[f.Path]; !ok {
			m[f.Path] = f
		}
	}
	return m
}
