// Package config loads the vecsync configuration: a YAML file with
// defaults, overridden by VECSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/vecsync-mcp/internal/chunker"
	"github.com/dshills/vecsync-mcp/internal/embedder"
	"github.com/dshills/vecsync-mcp/internal/source"
	"github.com/dshills/vecsync-mcp/internal/strategy"
	"github.com/dshills/vecsync-mcp/internal/vectorindex"
	"github.com/dshills/vecsync-mcp/pkg/types"
)

// Environment overrides
const (
	EnvConfigPath      = "VECSYNC_CONFIG"
	EnvDBPath          = "VECSYNC_DB_PATH"
	EnvCollectionsRoot = "VECSYNC_COLLECTIONS_ROOT"
	EnvIndexBackend    = "VECSYNC_INDEX_BACKEND"
	EnvQdrantURL       = "VECSYNC_QDRANT_URL"
	EnvChunkStrategy   = "VECSYNC_CHUNK_STRATEGY"
	EnvTargetSize      = "VECSYNC_TARGET_CHUNK_SIZE"
	EnvOverlapSize     = "VECSYNC_OVERLAP_SIZE"
	EnvLogLevel        = "VECSYNC_LOG_LEVEL"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// ChunkingConfig controls how files are split
type ChunkingConfig struct {
	TargetSize int    `yaml:"target_size"` // runes
	Overlap    int    `yaml:"overlap"`     // runes
	Strategy   string `yaml:"strategy"`    // structure, fixed or auto
}

// StrategyConfig tunes the auto strategy selector
type StrategyConfig struct {
	HeaderThreshold    int              `yaml:"header_threshold"`
	CodeFenceThreshold int              `yaml:"code_fence_threshold"`
	CompareAmbiguous   bool             `yaml:"compare_ambiguous"`
	Weights            strategy.Weights `yaml:"weights"`
}

// EmbedderConfig selects the embedding provider
type EmbedderConfig struct {
	Provider    string `yaml:"provider"` // local, jina, openai, ollama; empty auto-detects
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimension   int    `yaml:"dimension"`
	CacheSize   int    `yaml:"cache_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant index
type QdrantConfig struct {
	URL         string `yaml:"url"`
	Collection  string `yaml:"collection"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig selects the vector index backend
type IndexConfig struct {
	Backend string       `yaml:"backend"` // local or qdrant
	Qdrant  QdrantConfig `yaml:"qdrant"`
}

// SyncConfig bounds sync runs
type SyncConfig struct {
	MaxErrors      int `yaml:"max_errors"`
	EmbedBatchSize int `yaml:"embed_batch_size"`
	Concurrency    int `yaml:"concurrency"`
}

// SearchConfig controls the result cache
type SearchConfig struct {
	CacheSize    int `yaml:"cache_size"`
	CacheTTLSecs int `yaml:"cache_ttl_secs"`
}

// Config is the root configuration
type Config struct {
	DBPath          string         `yaml:"db_path"`
	CollectionsRoot string         `yaml:"collections_root"`
	Extensions      []string       `yaml:"extensions"`
	Chunking        ChunkingConfig `yaml:"chunking"`
	Strategy        StrategyConfig `yaml:"strategy"`
	Embedder        EmbedderConfig `yaml:"embedder"`
	Index           IndexConfig    `yaml:"index"`
	Sync            SyncConfig     `yaml:"sync"`
	Search          SearchConfig   `yaml:"search"`
	LogLevel        string         `yaml:"log_level"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DBPath:          "~/.vecsync/vecsync.db",
		CollectionsRoot: "~/.vecsync/collections",
		Extensions:      append([]string(nil), source.DefaultExtensions...),
		Chunking: ChunkingConfig{
			TargetSize: chunker.DefaultTargetChunkSize,
			Overlap:    chunker.DefaultOverlapSize,
			Strategy:   string(chunker.StrategyAuto),
		},
		Strategy: StrategyConfig{
			HeaderThreshold:    strategy.DefaultHeaderThreshold,
			CodeFenceThreshold: strategy.DefaultCodeFenceThreshold,
			CompareAmbiguous:   true,
			Weights:            strategy.DefaultWeights(),
		},
		Embedder: EmbedderConfig{
			CacheSize:   embedder.DefaultCacheSize,
			TimeoutSecs: 30,
		},
		Index: IndexConfig{
			Backend: vectorindex.BackendLocal,
			Qdrant: QdrantConfig{
				URL:         "http://localhost:6333",
				Collection:  "vecsync",
				APIKeyEnv:   "QDRANT_API_KEY",
				TimeoutSecs: 30,
			},
		},
		Sync: SyncConfig{
			MaxErrors:      types.DefaultMaxErrors,
			EmbedBatchSize: embedder.DefaultBatchSize,
			Concurrency:    4,
		},
		Search: SearchConfig{
			CacheSize:    1000,
			CacheTTLSecs: 3600,
		},
		LogLevel: "info",
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads $VECSYNC_CONFIG, else ./vecsync.yaml, else
// ~/.config/vecsync/config.yaml. It returns the path it used.
func LoadDefault() (*Config, string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		cfg, err := Load(p)
		return cfg, p, err
	}
	if _, err := os.Stat("vecsync.yaml"); err == nil {
		cfg, err := Load("vecsync.yaml")
		return cfg, "vecsync.yaml", err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes cfg to path, creating directories as needed
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath is ~/.config/vecsync/config.yaml
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "vecsync", "config.yaml"), nil
}

func (c *Config) applyEnv() error {
	setString := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	setInt := func(env string, dst *int) error {
		v := os.Getenv(env)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, env, v)
		}
		*dst = n
		return nil
	}

	setString(EnvDBPath, &c.DBPath)
	setString(EnvCollectionsRoot, &c.CollectionsRoot)
	setString(EnvIndexBackend, &c.Index.Backend)
	setString(EnvQdrantURL, &c.Index.Qdrant.URL)
	setString(EnvChunkStrategy, &c.Chunking.Strategy)
	setString(embedder.EnvProvider, &c.Embedder.Provider)
	setString(EnvLogLevel, &c.LogLevel)
	if err := setInt(EnvTargetSize, &c.Chunking.TargetSize); err != nil {
		return err
	}
	return setInt(EnvOverlapSize, &c.Chunking.Overlap)
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is required", ErrInvalid)
	}
	if c.Chunking.TargetSize < chunker.MinTargetChunkSize {
		return fmt.Errorf("%w: chunking.target_size must be at least %d", ErrInvalid, chunker.MinTargetChunkSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.TargetSize {
		return fmt.Errorf("%w: chunking.overlap must be in [0, target_size)", ErrInvalid)
	}
	if _, err := chunker.ParseStrategy(c.Chunking.Strategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Strategy.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: strategy.weights: %v", ErrInvalid, err)
	}
	switch strings.ToLower(c.Embedder.Provider) {
	case "", embedder.ProviderLocal, embedder.ProviderJina, embedder.ProviderOpenAI, embedder.ProviderOllama:
	default:
		return fmt.Errorf("%w: unknown embedder.provider %q", ErrInvalid, c.Embedder.Provider)
	}
	switch strings.ToLower(c.Index.Backend) {
	case vectorindex.BackendLocal:
	case vectorindex.BackendQdrant:
		if c.Index.Qdrant.URL == "" {
			return fmt.Errorf("%w: index.qdrant.url is required", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown index.backend %q", ErrInvalid, c.Index.Backend)
	}
	if c.Sync.EmbedBatchSize < 1 || c.Sync.EmbedBatchSize > embedder.MaxBatchSize {
		return fmt.Errorf("%w: sync.embed_batch_size must be in [1, %d]", ErrInvalid, embedder.MaxBatchSize)
	}
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("%w: sync.concurrency must be positive", ErrInvalid)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses log_level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}

// ResolvedDBPath expands a leading ~ in db_path
func (c *Config) ResolvedDBPath() (string, error) {
	return expandHome(c.DBPath)
}

// ResolvedCollectionsRoot expands a leading ~ in collections_root
func (c *Config) ResolvedCollectionsRoot() (string, error) {
	return expandHome(c.CollectionsRoot)
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// ChunkerConfig maps the chunking section
func (c *Config) ChunkerConfig() chunker.Config {
	return chunker.Config{TargetChunkSize: c.Chunking.TargetSize, OverlapSize: c.Chunking.Overlap}
}

// SelectorConfig maps the strategy section
func (c *Config) SelectorConfig() strategy.Config {
	return strategy.Config{
		HeaderThreshold:    c.Strategy.HeaderThreshold,
		CodeFenceThreshold: c.Strategy.CodeFenceThreshold,
		CompareAmbiguous:   c.Strategy.CompareAmbiguous,
		Weights:            c.Strategy.Weights,
	}
}

// ChunkStrategy returns the validated strategy mode
func (c *Config) ChunkStrategy() chunker.Strategy {
	s, _ := chunker.ParseStrategy(c.Chunking.Strategy)
	return s
}

// EmbedderFactoryConfig maps the embedder section, reading the API key from
// the configured variable
func (c *Config) EmbedderFactoryConfig() embedder.Config {
	e := c.Embedder
	out := embedder.Config{
		Provider:  e.Provider,
		Model:     e.Model,
		BaseURL:   e.BaseURL,
		Dimension: e.Dimension,
		CacheSize: e.CacheSize,
		Timeout:   time.Duration(e.TimeoutSecs) * time.Second,
	}
	if e.APIKeyEnv != "" {
		out.APIKey = os.Getenv(e.APIKeyEnv)
	}
	return out
}

// IndexFactoryConfig maps the index section
func (c *Config) IndexFactoryConfig() vectorindex.Config {
	q := c.Index.Qdrant
	out := vectorindex.Config{
		Backend:   c.Index.Backend,
		BatchSize: c.Sync.EmbedBatchSize,
		Qdrant: vectorindex.QdrantConfig{
			URL:        q.URL,
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		},
	}
	if q.APIKeyEnv != "" {
		out.Qdrant.APIKey = os.Getenv(q.APIKeyEnv)
	}
	return out
}

// SearchCacheTTL returns the result cache lifetime
func (c *Config) SearchCacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTLSecs) * time.Second
}
