package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/vecsync-mcp/internal/chunker"
	"github.com/dshills/vecsync-mcp/internal/detector"
	"github.com/dshills/vecsync-mcp/internal/source"
	"github.com/dshills/vecsync-mcp/internal/storage"
	"github.com/dshills/vecsync-mcp/internal/strategy"
	"github.com/dshills/vecsync-mcp/internal/vectorindex"
	"github.com/dshills/vecsync-mcp/pkg/types"
)

// ErrClosed is returned once Close has been called
var ErrClosed = errors.New("syncer closed")

// DefaultConcurrency bounds SyncAll when no limit is configured
const DefaultConcurrency = 4

// Config contains configuration for the syncer
type Config struct {
	Mode        chunker.Strategy // structure, fixed or auto
	MaxErrors   int              // errors and warnings kept per status
	Concurrency int              // collections synced at once by SyncAll
}

// Syncer keeps the vector index of each collection in step with its
// source files. At most one run per collection is active at a time;
// different collections sync concurrently.
type Syncer struct {
	store    storage.Storage
	index    vectorindex.Index
	source   source.Source
	selector *strategy.Selector
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	locks     map[string]*runLock
	runs      map[string]*run
	observers []func(collection string)
	closed    bool
	wg        sync.WaitGroup
}

// run is one background sync of a collection
type run struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	// set before done is closed
	status *types.SyncStatus
	err    error
}

// New creates a Syncer. The index and store are shared with every other
// component of the process.
func New(store storage.Storage, index vectorindex.Index, src source.Source, selector *strategy.Selector, cfg Config, logger *slog.Logger) *Syncer {
	if cfg.Mode == "" {
		cfg.Mode = chunker.StrategyAuto
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = types.DefaultMaxErrors
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:    store,
		index:    index,
		source:   src,
		selector: selector,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[string]*runLock),
		runs:     make(map[string]*run),
	}
}

// OnChange registers fn to be called with the collection name whenever a
// run or a deletion may have changed the collection's vectors
func (s *Syncer) OnChange(fn func(collection string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Syncer) notify(collection string) {
	s.mu.Lock()
	observers := append([]func(string){}, s.observers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(collection)
	}
}

func (s *Syncer) lockFor(collection string) *runLock {
	l, ok := s.locks[collection]
	if !ok {
		l = &runLock{}
		s.locks[collection] = l
	}
	return l
}

// acquire takes the collection's writer lock or fails with
// ErrSyncInProgress
func (s *Syncer) acquire(collection string) (*runLock, error) {
	if collection == "" {
		return nil, types.ErrCollectionMissing
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	l := s.lockFor(collection)
	if !l.TryAcquire() {
		return nil, fmt.Errorf("%w: %s", types.ErrSyncInProgress, collection)
	}
	return l, nil
}

// Sync runs an incremental sync and waits for it. Cancelling ctx stops the
// run between files.
func (s *Syncer) Sync(ctx context.Context, collection string) (*types.SyncStatus, error) {
	r, err := s.start(ctx, collection, false)
	if err != nil {
		return nil, err
	}
	<-r.done
	return r.status.Clone(), r.err
}

// ForceResync purges the collection from the index and the chunk table,
// then indexes every live file as added
func (s *Syncer) ForceResync(ctx context.Context, collection string) (*types.SyncStatus, error) {
	r, err := s.start(ctx, collection, true)
	if err != nil {
		return nil, err
	}
	<-r.done
	return r.status.Clone(), r.err
}

// StartSync begins an incremental sync in the background and returns the
// syncing status
func (s *Syncer) StartSync(collection string) (*types.SyncStatus, error) {
	return s.startDetached(collection, false)
}

// StartForceResync begins a force resync in the background
func (s *Syncer) StartForceResync(collection string) (*types.SyncStatus, error) {
	return s.startDetached(collection, true)
}

func (s *Syncer) startDetached(collection string, force bool) (*types.SyncStatus, error) {
	if _, err := s.start(context.Background(), collection, force); err != nil {
		return nil, err
	}
	return s.GetStatus(context.Background(), collection)
}

// start enters syncing and launches the run
func (s *Syncer) start(parent context.Context, collection string, force bool) (*run, error) {
	lock, err := s.acquire(collection)
	if err != nil {
		return nil, err
	}

	st, err := s.loadStatus(parent, collection)
	if err != nil {
		lock.Release()
		return nil, err
	}
	now := s.now()
	if st.State == types.StateSyncing {
		// we hold the lock, so this run died with a previous process
		_ = st.MarkInterrupted(now)
	}

	id := uuid.Must(uuid.NewV7()).String()
	if err := st.BeginRun(id, now); err != nil {
		lock.Release()
		return nil, err
	}
	if err := s.store.SaveSyncStatus(parent, st); err != nil {
		lock.Release()
		return nil, fmt.Errorf("failed to save sync status: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	r := &run{id: id, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.runs[collection] = r
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("sync: run started",
		slog.String("collection", collection),
		slog.String("run_id", id),
		slog.Bool("force", force))

	go s.execute(ctx, r, lock, st, force)
	return r, nil
}

func (s *Syncer) execute(ctx context.Context, r *run, lock *runLock, st *types.SyncStatus, force bool) {
	collection := st.Collection
	changed := false
	defer func() {
		r.cancel()
		s.mu.Lock()
		delete(s.runs, collection)
		s.mu.Unlock()
		lock.Release()
		if changed {
			s.notify(collection)
		}
		close(r.done)
		s.wg.Done()
	}()

	changed, r.err = s.process(ctx, st, force)
	r.status = st

	attrs := []any{
		slog.String("collection", collection),
		slog.String("run_id", r.id),
		slog.String("state", string(st.State)),
		slog.Int("synced", st.SyncedFiles),
		slog.Int("failed", st.FailedFiles),
		slog.Duration("duration", st.LastSyncDuration),
	}
	if r.err != nil {
		s.logger.Error("sync: run failed", append(attrs, slog.String("error", r.err.Error()))...)
		return
	}
	s.logger.Info("sync: run finished", attrs...)
}

// process performs one run and leaves st in a terminal state. It reports
// whether the index may have changed and returns run-level errors.
func (s *Syncer) process(ctx context.Context, st *types.SyncStatus, force bool) (bool, error) {
	collection := st.Collection
	// files are never abandoned halfway; cancellation is honoured between them
	fileCtx := context.WithoutCancel(ctx)

	live, err := s.source.ListFiles(ctx, collection)
	if err != nil {
		return false, s.fail(fileCtx, st, fmt.Errorf("list files: %w", err))
	}
	files := detector.Index(live)
	st.TotalFiles = len(files)

	changed := false
	indexed := map[string][32]byte{}
	if force {
		if err := s.index.Ping(ctx); err != nil {
			return false, s.fail(fileCtx, st, &types.IndexUnavailableError{Op: "ping", Err: err})
		}
		if err := s.index.DeleteCollection(fileCtx, collection); err != nil {
			return false, s.fail(fileCtx, st, &types.IndexUnavailableError{Op: "delete collection", Err: err})
		}
		changed = true
		if _, err := s.store.DeleteCollectionChunks(fileCtx, collection); err != nil {
			return changed, s.fail(fileCtx, st, fmt.Errorf("clear chunk table: %w", err))
		}
	} else {
		indexed, err = s.indexedHashes(ctx, collection)
		if err != nil {
			return false, s.fail(fileCtx, st, err)
		}
	}

	cs := detector.Detect(live, indexed)
	st.Progress.Planned = cs.Pending()
	st.Progress.Unchanged = len(cs.Unchanged)

	if !cs.HasChanges() {
		if changed {
			s.countChunks(fileCtx, st)
		}
		return changed, s.finish(fileCtx, st, false)
	}

	if !force {
		if err := s.index.Ping(ctx); err != nil {
			return false, s.fail(fileCtx, st, &types.IndexUnavailableError{Op: "ping", Err: err})
		}
	}
	s.save(fileCtx, st)

	upserts := append(append([]string{}, cs.Added...), cs.Modified...)
	sort.Strings(upserts)

	cancelled := false
	step := func(path string, removal bool, fn func() ([]*types.ChunkingError, error)) bool {
		if ctx.Err() != nil {
			cancelled = true
			return false
		}
		st.Progress.Current = path
		warnings, err := fn()
		changed = true
		st.Progress.Attempted++
		for _, w := range warnings {
			st.RecordWarning(w.Error(), s.cfg.MaxErrors)
		}
		if err != nil {
			st.Progress.Failed++
			st.RecordError(err.Error(), s.cfg.MaxErrors)
			s.logger.Warn("sync: file failed",
				slog.String("collection", collection),
				slog.String("path", path),
				slog.String("error", err.Error()))
		} else {
			st.Progress.Succeeded++
			if removal {
				st.Progress.Removed++
			}
		}
		st.Progress.Current = ""
		s.save(fileCtx, st)
		return true
	}

	for _, path := range upserts {
		rec := files[path]
		if !step(path, false, func() ([]*types.ChunkingError, error) { return s.syncFile(fileCtx, rec) }) {
			break
		}
	}
	if !cancelled {
		for _, path := range cs.Deleted {
			if !step(path, true, func() ([]*types.ChunkingError, error) { return nil, s.removeFile(fileCtx, collection, path) }) {
				break
			}
		}
	}

	s.countChunks(fileCtx, st)
	return changed, s.finish(fileCtx, st, cancelled)
}

func (s *Syncer) countChunks(ctx context.Context, st *types.SyncStatus) {
	n, err := s.store.CountChunks(ctx, st.Collection)
	if err != nil {
		s.logger.Warn("sync: failed to count chunks",
			slog.String("collection", st.Collection),
			slog.String("error", err.Error()))
		return
	}
	st.ChunkCount = n
}

// syncFile chunks and embeds one file, then swaps its chunks in the index
// and the chunk table. Old vectors are deleted only once the new ones are
// ready. Any failure after that point removes the file's table rows, so the
// table never references vectors that are gone and the next run treats the
// file as added.
func (s *Syncer) syncFile(ctx context.Context, rec types.FileRecord) ([]*types.ChunkingError, error) {
	fail := func(op string, err error) error {
		return &types.FileSyncError{Path: rec.Path, Op: op, Err: err}
	}

	sel, err := s.selector.Select(rec.Document(), s.cfg.Mode)
	if err != nil {
		return nil, fail("chunk", err)
	}
	chunks := sel.Result.Chunks
	warnings := sel.Result.Warnings

	var vectors [][]float32
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		vectors, err = s.index.EmbedBatch(ctx, texts)
		if err != nil {
			return warnings, fail("embed", err)
		}
		if len(vectors) != len(chunks) {
			return warnings, fail("embed", fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
		}
	}

	oldIDs, err := s.store.ListChunkIDs(ctx, rec.Collection, rec.Path)
	if err != nil {
		return warnings, fail("store", err)
	}
	if len(oldIDs) > 0 {
		if err := s.index.Delete(ctx, oldIDs); err != nil {
			return warnings, fail("delete", err)
		}
	}

	points := make([]vectorindex.Point, len(chunks))
	newIDs := make([]string, len(chunks))
	for i, c := range chunks {
		newIDs[i] = c.ID
		points[i] = vectorindex.Point{
			ID:         c.ID,
			Collection: c.Collection,
			Path:       c.Path,
			ChunkIndex: c.ChunkIndex,
			Vector:     vectors[i],
		}
	}

	if err := s.index.Upsert(ctx, points); err != nil {
		s.discard(ctx, rec, newIDs)
		return warnings, fail("upsert", err)
	}

	file := &storage.IndexedFile{
		Collection: rec.Collection,
		Path:       rec.Path,
		SourceHash: rec.ContentHash,
		Strategy:   string(sel.Strategy),
		IndexedAt:  s.now(),
	}
	if err := s.store.ReplaceFileChunks(ctx, file, chunks); err != nil {
		s.discard(ctx, rec, newIDs)
		return warnings, fail("store", err)
	}
	return warnings, nil
}

// discard drops whatever a failed file sync may have left behind
func (s *Syncer) discard(ctx context.Context, rec types.FileRecord, ids []string) {
	if len(ids) > 0 {
		if err := s.index.Delete(ctx, ids); err != nil {
			s.logger.Warn("sync: cleanup of new vectors failed",
				slog.String("collection", rec.Collection),
				slog.String("path", rec.Path),
				slog.String("error", err.Error()))
		}
	}
	if err := s.store.DeleteIndexedFile(ctx, rec.Collection, rec.Path); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("sync: cleanup of chunk rows failed",
			slog.String("collection", rec.Collection),
			slog.String("path", rec.Path),
			slog.String("error", err.Error()))
	}
}

// removeFile deletes a file that no longer exists in the source
func (s *Syncer) removeFile(ctx context.Context, collection, path string) error {
	ids, err := s.store.ListChunkIDs(ctx, collection, path)
	if err != nil {
		return &types.FileSyncError{Path: path, Op: "store", Err: err}
	}
	if len(ids) > 0 {
		if err := s.index.Delete(ctx, ids); err != nil {
			return &types.FileSyncError{Path: path, Op: "delete", Err: err}
		}
	}
	if err := s.store.DeleteIndexedFile(ctx, collection, path); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return &types.FileSyncError{Path: path, Op: "store", Err: err}
	}
	return nil
}

func (s *Syncer) indexedHashes(ctx context.Context, collection string) (map[string][32]byte, error) {
	files, err := s.store.ListIndexedFiles(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list indexed files: %w", err)
	}
	out := make(map[string][32]byte, len(files))
	for _, f := range files {
		out[f.Path] = f.SourceHash
	}
	return out, nil
}

func (s *Syncer) finish(ctx context.Context, st *types.SyncStatus, cancelled bool) error {
	if err := st.FinishRun(s.now(), cancelled); err != nil {
		return err
	}
	s.save(ctx, st)
	return nil
}

// fail ends the run with sync_error and returns cause for the caller
func (s *Syncer) fail(ctx context.Context, st *types.SyncStatus, cause error) error {
	if err := st.Fail(cause, s.now()); err != nil {
		return errors.Join(cause, err)
	}
	s.save(ctx, st)
	return cause
}

// save persists st; a failed write is logged and the run continues
func (s *Syncer) save(ctx context.Context, st *types.SyncStatus) {
	st.UpdatedAt = s.now()
	if err := s.store.SaveSyncStatus(ctx, st); err != nil {
		s.logger.Error("sync: failed to save status",
			slog.String("collection", st.Collection),
			slog.String("error", err.Error()))
	}
}

func (s *Syncer) loadStatus(ctx context.Context, collection string) (*types.SyncStatus, error) {
	st, err := s.store.GetSyncStatus(ctx, collection)
	if errors.Is(err, storage.ErrNotFound) {
		return types.NewSyncStatus(collection), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync status: %w", err)
	}
	return st, nil
}

// Cancel asks the active run of collection to stop after the current file.
// It reports whether a run was active.
func (s *Syncer) Cancel(collection string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[collection]
	if ok {
		r.cancel()
	}
	return ok
}

// Wait blocks until the active run of collection ends and returns its final
// status. Without an active run it returns the persisted status.
func (s *Syncer) Wait(ctx context.Context, collection string) (*types.SyncStatus, error) {
	s.mu.Lock()
	r, ok := s.runs[collection]
	s.mu.Unlock()
	if !ok {
		return s.GetStatus(ctx, collection)
	}
	select {
	case <-r.done:
		return r.status.Clone(), r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Running reports whether collection has an active run
func (s *Syncer) Running(collection string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runs[collection]
	return ok
}

// Close cancels every active run and waits for them to finish
func (s *Syncer) Close() error {
	s.mu.Lock()
	s.closed = true
	for _, r := range s.runs {
		r.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// GetStatus returns the persisted status of collection without blocking on
// a run. A syncing status without a live run is recovered as sync_error.
func (s *Syncer) GetStatus(ctx context.Context, collection string) (*types.SyncStatus, error) {
	if collection == "" {
		return nil, types.ErrCollectionMissing
	}
	st, err := s.loadStatus(ctx, collection)
	if err != nil {
		return nil, err
	}
	if st.State == types.StateSyncing {
		return s.recover(ctx, st)
	}
	return st, nil
}

// recover marks a stale syncing status as interrupted. Holding the writer
// lock while doing so keeps a new run from being overwritten.
func (s *Syncer) recover(ctx context.Context, st *types.SyncStatus) (*types.SyncStatus, error) {
	s.mu.Lock()
	lock := s.lockFor(st.Collection)
	acquired := lock.TryAcquire()
	s.mu.Unlock()
	if !acquired {
		return st, nil
	}
	defer lock.Release()

	fresh, err := s.loadStatus(ctx, st.Collection)
	if err != nil {
		return nil, err
	}
	if fresh.State != types.StateSyncing {
		return fresh, nil
	}
	if err := fresh.MarkInterrupted(s.now()); err != nil {
		return nil, err
	}
	if err := s.store.SaveSyncStatus(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to save sync status: %w", err)
	}
	s.logger.Warn("sync: recovered interrupted run",
		slog.String("collection", fresh.Collection),
		slog.String("run_id", fresh.RunID))
	return fresh, nil
}

// GetAllStatuses returns the status of every collection that has one or
// that the source knows about, sorted by name
func (s *Syncer) GetAllStatuses(ctx context.Context) ([]*types.SyncStatus, error) {
	stored, err := s.store.ListSyncStatuses(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*types.SyncStatus, len(stored))
	for _, st := range stored {
		if st.State == types.StateSyncing {
			if st, err = s.recover(ctx, st); err != nil {
				return nil, err
			}
		}
		byName[st.Collection] = st
	}

	if names, err := s.source.ListCollections(ctx); err == nil {
		for _, name := range names {
			if _, ok := byName[name]; !ok {
				byName[name] = types.NewSyncStatus(name)
			}
		}
	} else {
		s.logger.Warn("sync: failed to list source collections", slog.String("error", err.Error()))
	}

	out := make([]*types.SyncStatus, 0, len(byName))
	for _, st := range byName {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out, nil
}

// PendingChanges compares the live files of collection with the chunk
// table without touching the index
func (s *Syncer) PendingChanges(ctx context.Context, collection string) (detector.ChangeSet, error) {
	if collection == "" {
		return detector.ChangeSet{}, types.ErrCollectionMissing
	}
	live, err := s.source.ListFiles(ctx, collection)
	if err != nil {
		return detector.ChangeSet{}, err
	}
	indexed, err := s.indexedHashes(ctx, collection)
	if err != nil {
		return detector.ChangeSet{}, err
	}
	return detector.Detect(live, indexed), nil
}

// DisplayState returns the user-facing state of collection, reporting an
// in_sync collection with source changes as out_of_sync
func (s *Syncer) DisplayState(ctx context.Context, st *types.SyncStatus) types.SyncState {
	if st.State != types.StateInSync {
		return st.State
	}
	cs, err := s.PendingChanges(ctx, st.Collection)
	if err != nil {
		return st.State
	}
	return types.DisplayState(st, cs.HasChanges())
}

// purge removes every vector and chunk row of collection
func (s *Syncer) purge(ctx context.Context, collection string) error {
	if err := s.index.DeleteCollection(ctx, collection); err != nil {
		return &types.IndexUnavailableError{Op: "delete collection", Err: err}
	}
	if _, err := s.store.DeleteCollectionChunks(ctx, collection); err != nil {
		return fmt.Errorf("clear chunk table: %w", err)
	}
	return nil
}

// DeleteVectors purges the collection from the index and the chunk table
// and resets its status to never_synced. It fails with ErrSyncInProgress
// while a run is active.
func (s *Syncer) DeleteVectors(ctx context.Context, collection string) (*types.SyncStatus, error) {
	lock, err := s.acquire(collection)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	if err := s.purge(ctx, collection); err != nil {
		return nil, err
	}
	s.notify(collection)

	st, err := s.loadStatus(ctx, collection)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if st.State == types.StateSyncing {
		_ = st.MarkInterrupted(now)
	}
	if err := st.Reset(now); err != nil {
		return nil, err
	}
	if err := s.store.SaveSyncStatus(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to save sync status: %w", err)
	}

	s.logger.Info("sync: vectors deleted", slog.String("collection", collection))
	return st, nil
}

// DeleteCollection is the cascade the collection owner calls when it
// removes a collection: any run is cancelled, the vectors and chunk rows
// are purged and the status row is deleted.
func (s *Syncer) DeleteCollection(ctx context.Context, collection string) error {
	if collection == "" {
		return types.ErrCollectionMissing
	}

	s.mu.Lock()
	r, ok := s.runs[collection]
	s.mu.Unlock()
	if ok {
		r.cancel()
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	lock, err := s.acquire(collection)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := s.purge(ctx, collection); err != nil {
		return err
	}
	if err := s.store.DeleteSyncStatus(ctx, collection); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete sync status: %w", err)
	}
	s.notify(collection)

	s.logger.Info("sync: collection deleted", slog.String("collection", collection))
	return nil
}

// SyncAll syncs every collection of the source, at most Concurrency at a
// time. Collections already syncing are reported with their current status.
func (s *Syncer) SyncAll(ctx context.Context) ([]*types.SyncStatus, error) {
	names, err := s.source.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)

	results := make([]*types.SyncStatus, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			st, err := s.Sync(gctx, name)
			if errors.Is(err, types.ErrSyncInProgress) {
				st, err = s.GetStatus(gctx, name)
			}
			if st != nil {
				// run-level failures are recorded in the status
				results[i] = st
				return nil
			}
			return fmt.Errorf("%s: %w", name, err)
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
