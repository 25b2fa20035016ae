// Package app wires the sync engine from configuration. Exactly one
// storage handle and one vector index are created per process and shared
// by the syncer, the searcher and every surface on top of them.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/vecsync-mcp/internal/chunker"
	"github.com/dshills/vecsync-mcp/internal/config"
	"github.com/dshills/vecsync-mcp/internal/embedder"
	"github.com/dshills/vecsync-mcp/internal/searcher"
	"github.com/dshills/vecsync-mcp/internal/source"
	"github.com/dshills/vecsync-mcp/internal/storage"
	"github.com/dshills/vecsync-mcp/internal/strategy"
	"github.com/dshills/vecsync-mcp/internal/syncer"
	"github.com/dshills/vecsync-mcp/internal/vectorindex"
)

// App holds the shared components
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    storage.Storage
	Index    vectorindex.Index
	Source   source.Source
	Syncer   *syncer.Syncer
	Searcher *searcher.Searcher
}

// Open builds the storage, embedder, index and source described by cfg
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	dbPath, err := cfg.ResolvedDBPath()
	if err != nil {
		return nil, err
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	root, err := cfg.ResolvedCollectionsRoot()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderFactoryConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	index, err := vectorindex.New(cfg.IndexFactoryConfig(), store, emb)
	if err != nil {
		_ = emb.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	logger.Debug("app: components ready",
		slog.String("db", dbPath),
		slog.String("collections_root", root),
		slog.String("embedder", emb.Provider()+"/"+emb.Model()),
		slog.String("index", cfg.Index.Backend))

	return New(cfg, store, index, source.NewDirSource(root, cfg.Extensions), logger), nil
}

// New wires the syncer and searcher on top of already built components
func New(cfg *config.Config, store storage.Storage, index vectorindex.Index, src source.Source, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	selector := strategy.New(chunker.New(cfg.ChunkerConfig()), cfg.SelectorConfig())
	sy := syncer.New(store, index, src, selector, syncer.Config{
		Mode:        cfg.ChunkStrategy(),
		MaxErrors:   cfg.Sync.MaxErrors,
		Concurrency: cfg.Sync.Concurrency,
	}, logger)
	srch := searcher.NewSearcher(store, index, cfg.Search.CacheSize, logger)
	sy.OnChange(srch.Invalidate)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Index:    index,
		Source:   src,
		Syncer:   sy,
		Searcher: srch,
	}
}

// Close stops active runs, then releases the index and the storage
func (a *App) Close() error {
	_ = a.Syncer.Close()
	ierr := a.Index.Close()
	serr := a.Store.Close()
	if ierr != nil {
		return ierr
	}
	return serr
}
