package detector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/vecsync-mcp/pkg/types"
)

func rec(path, content string) types.FileRecord {
	return types.NewFileRecord("docs", path, []byte(content))
}

func TestDetect(t *testing.T) {
	live := []types.FileRecord{
		rec("b.md", "same"),
		rec("a.md", "new"),
		rec("c.md", "edited"),
	}
	indexed := map[string][32]byte{
		"b.md": types.HashString("same"),
		"c.md": types.HashString("original"),
		"z.md": types.HashString("gone"),
		"d.md": types.HashString("gone too"),
	}

	cs := Detect(live, indexed)
	assert.Equal(t, []string{"a.md"}, cs.Added)
	assert.Equal(t, []string{"c.md"}, cs.Modified)
	assert.Equal(t, []string{"d.md", "z.md"}, cs.Deleted)
	assert.Equal(t, []string{"b.md"}, cs.Unchanged)
	assert.True(t, cs.HasChanges())
	assert.Equal(t, 4, cs.Pending())
	assert.Equal(t, 5, cs.Total())
}

func TestDetect_Empty(t *testing.T) {
	cs := Detect(nil, nil)
	assert.False(t, cs.HasChanges())
	assert.Zero(t, cs.Total())

	cs = Detect(nil, map[string][32]byte{"a.md": types.HashString("x")})
	assert.Equal(t, []string{"a.md"}, cs.Deleted)
}

func TestDetect_NoChanges(t *testing.T) {
	live := []types.FileRecord{rec("a.md", "x"), rec("b.md", "y")}
	indexed := map[string][32]byte{
		"a.md": types.HashString("x"),
		"b.md": types.HashString("y"),
	}
	cs := Detect(live, indexed)
	assert.False(t, cs.HasChanges())
	assert.Equal(t, []string{"a.md", "b.md"}, cs.Unchanged)
}

func TestDetect_DuplicateFirstWins(t *testing.T) {
	live := []types.FileRecord{rec("a.md", "x"), rec("a.md", "changed")}
	indexed := map[string][32]byte{"a.md": types.HashString("x")}

	cs := Detect(live, indexed)
	assert.Equal(t, []string{"a.md"}, cs.Unchanged)
	assert.Empty(t, cs.Modified)
	assert.Equal(t, 1, cs.Total())

	assert.Equal(t, "x", string(Index(live)["a.md"].Content))
}

func TestDetect_EveryPathClassifiedOnce(t *testing.T) {
	var live []types.FileRecord
	indexed := make(map[string][32]byte)
	for i := 0; i < 50; i++ {
		path := fmt.Sprintf("f%02d.md", i)
		switch i % 3 {
		case 0:
			live = append(live, rec(path, "v1"))
			indexed[path] = types.HashString("v1")
		case 1:
			live = append(live, rec(path, "v2"))
			indexed[path] = types.HashString("v1")
		default:
			indexed[path] = types.HashString("v1")
		}
	}
	live = append(live, rec("new.md", "n"))

	cs := Detect(live, indexed)
	seen := make(map[string]int)
	for _, list := range [][]string{cs.Added, cs.Modified, cs.Deleted, cs.Unchanged} {
		for _, p := range list {
			seen[p]++
		}
	}
	assert.Len(t, seen, 51)
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}
}

func BenchmarkDetect(b *testing.B) {
	const n = 10000
	live := make([]types.FileRecord, n)
	indexed := make(map[string][32]byte, n)
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("dir/%05d.md", i)
		live[i] = rec(path, path)
		if i%10 == 0 {
			indexed[path] = types.HashString("old")
		} else {
			indexed[path] = live[i].ContentHash
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Detect(live, indexed)
	}
}
