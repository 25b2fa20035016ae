package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vecsync-mcp/internal/app"
	"github.com/dshills/vecsync-mcp/internal/config"
)

type cliFixture struct {
	configPath string
	root       string
}

func setupCLI(t *testing.T) *cliFixture {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "collections")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "handbook"), 0o755))

	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "vecsync.db")
	cfg.CollectionsRoot = root
	cfg.Embedder.Provider = "local"
	cfg.LogLevel = "error"
	path := filepath.Join(dir, "vecsync.yaml")
	require.NoError(t, config.Save(path, cfg))

	f := &cliFixture{configPath: path, root: root}
	f.write(t, "onboarding.md", "# Onboarding\n\nRequest laptop access from the IT desk.\n\n## Accounts\n\nCreate your SSO account on day one.\n")
	f.write(t, "travel.md", "# Travel\n\nBook flights through the travel portal.\n")
	return f
}

func (f *cliFixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "handbook", name), []byte(content), 0o644))
}

func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&options{build: BuildInfo{Version: "test"}, open: app.Open})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", f.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSyncThenStatus(t *testing.T) {
	f := setupCLI(t)

	out, err := f.run(t, "sync", "handbook")
	require.NoError(t, err)
	assert.Contains(t, out, "handbook")
	assert.Contains(t, out, "in_sync")
	assert.Contains(t, out, "2 synced, 0 failed, 2 total")

	out, err = f.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "COLLECTION")
	assert.Contains(t, out, "handbook")
	assert.Contains(t, out, "2/2")

	f.write(t, "travel.md", "# Travel\n\nBook trains through the travel portal.\n")
	out, err = f.run(t, "status", "handbook")
	require.NoError(t, err)
	assert.Contains(t, out, "out_of_sync")
}

func TestPending(t *testing.T) {
	f := setupCLI(t)
	_, err := f.run(t, "sync", "handbook")
	require.NoError(t, err)

	f.write(t, "expenses.md", "# Expenses\n\nSubmit receipts within 30 days.\n")
	require.NoError(t, os.Remove(filepath.Join(f.root, "handbook", "travel.md")))

	out, err := f.run(t, "pending", "handbook")
	require.NoError(t, err)
	assert.Contains(t, out, "2 pending, 1 unchanged")
	assert.Contains(t, out, "+ expenses.md")
	assert.Contains(t, out, "- travel.md")
}

func TestSearchRaw(t *testing.T) {
	f := setupCLI(t)
	_, err := f.run(t, "sync", "handbook")
	require.NoError(t, err)

	out, err := f.run(t, "search", "--raw", "--k", "2", "laptop", "access")
	require.NoError(t, err)
	assert.Contains(t, out, `# Results for "laptop access"`)
	assert.Contains(t, out, "## 1. handbook/onboarding.md")
}

func TestSyncAllAndDelete(t *testing.T) {
	f := setupCLI(t)

	out, err := f.run(t, "sync", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "handbook")

	_, err = f.run(t, "sync", "--all", "--force")
	assert.Error(t, err)

	out, err = f.run(t, "delete-vectors", "handbook")
	require.NoError(t, err)
	assert.Contains(t, out, "never_synced")

	out, err = f.run(t, "delete-collection", "handbook")
	require.NoError(t, err)
	assert.Contains(t, out, "collection handbook deleted")
}

func TestArgumentValidation(t *testing.T) {
	f := setupCLI(t)

	_, err := f.run(t, "sync")
	assert.Error(t, err)
	_, err = f.run(t, "sync", "--all", "handbook")
	assert.Error(t, err)
	_, err = f.run(t, "pending")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	f := setupCLI(t)
	out, err := f.run(t, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "local index reachable")
}

func TestVersion(t *testing.T) {
	f := setupCLI(t)
	out, err := f.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vecsync test")
	assert.Contains(t, out, "SQLite Driver:")
}

func TestBadConfig(t *testing.T) {
	f := setupCLI(t)
	require.NoError(t, os.WriteFile(f.configPath, []byte("chunking:\n  overlap: 5000\n"), 0o644))
	_, err := f.run(t, "status")
	assert.ErrorIs(t, err, config.ErrInvalid)
}
