package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/vecsync-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// maxBatchParams keeps IN clauses below SQLite's host parameter limit
const maxBatchParams = 500

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// withTx runs fn in a transaction, rolling back on error
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

func toMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64)
}

func encodeStrings(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func decodeStrings(raw string) ([]string, error) {
	var list []string
	if raw == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(list []string) []interface{} {
	args := make([]interface{}, len(list))
	for i, v := range list {
		args[i] = v
	}
	return args
}

// batches splits ids into slices of at most maxBatchParams
func batches(ids []string) [][]string {
	var out [][]string
	for len(ids) > maxBatchParams {
		out = append(out, ids[:maxBatchParams])
		ids = ids[maxBatchParams:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// Status operations

const statusColumns = `
	collection, state, run_id, total_files, synced_files, failed_files,
	chunk_count, last_sync_time, last_sync_duration_ms, last_error,
	errors, warnings, progress, updated_at
`

func scanSyncStatus(row rowScanner) (*types.SyncStatus, error) {
	var st types.SyncStatus
	var state string
	var runID, lastError, progress sql.NullString
	var lastSync, updatedAt sql.NullInt64
	var durationMs int64
	var errs, warns string

	err := row.Scan(
		&st.Collection, &state, &runID, &st.TotalFiles, &st.SyncedFiles, &st.FailedFiles,
		&st.ChunkCount, &lastSync, &durationMs, &lastError,
		&errs, &warns, &progress, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	st.State = types.SyncState(state)
	st.RunID = runID.String
	st.LastError = lastError.String
	st.LastSyncTime = fromMillis(lastSync)
	st.LastSyncDuration = time.Duration(durationMs) * time.Millisecond
	st.UpdatedAt = fromMillis(updatedAt)

	if st.Errors, err = decodeStrings(errs); err != nil {
		return nil, fmt.Errorf("failed to decode errors: %w", err)
	}
	if st.Warnings, err = decodeStrings(warns); err != nil {
		return nil, fmt.Errorf("failed to decode warnings: %w", err)
	}
	if progress.Valid && progress.String != "" {
		var p types.SyncProgress
		if err := json.Unmarshal([]byte(progress.String), &p); err != nil {
			return nil, fmt.Errorf("failed to decode progress: %w", err)
		}
		st.Progress = &p
	}
	return &st, nil
}

// getSyncStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getSyncStatusWithQuerier(ctx context.Context, q querier, collection string) (*types.SyncStatus, error) {
	query := `SELECT ` + statusColumns + ` FROM sync_status WHERE collection = ?`
	st, err := scanSyncStatus(q.QueryRowContext(ctx, query, collection))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}
	return st, nil
}

func (s *SQLiteStorage) GetSyncStatus(ctx context.Context, collection string) (*types.SyncStatus, error) {
	return s.getSyncStatusWithQuerier(ctx, s.querier(), collection)
}

// listSyncStatusesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listSyncStatusesWithQuerier(ctx context.Context, q querier) ([]*types.SyncStatus, error) {
	query := `SELECT ` + statusColumns + ` FROM sync_status ORDER BY collection`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync statuses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	statuses := make([]*types.SyncStatus, 0)
	for rows.Next() {
		st, err := scanSyncStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

func (s *SQLiteStorage) ListSyncStatuses(ctx context.Context) ([]*types.SyncStatus, error) {
	return s.listSyncStatusesWithQuerier(ctx, s.querier())
}

// saveSyncStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) saveSyncStatusWithQuerier(ctx context.Context, q querier, st *types.SyncStatus) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("invalid sync status: %w", err)
	}

	errs, err := encodeStrings(st.Errors)
	if err != nil {
		return err
	}
	warns, err := encodeStrings(st.Warnings)
	if err != nil {
		return err
	}
	var progress sql.NullString
	if st.Progress != nil {
		b, err := json.Marshal(st.Progress)
		if err != nil {
			return err
		}
		progress = sql.NullString{String: string(b), Valid: true}
	}

	updatedAt := st.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		INSERT INTO sync_status (` + statusColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection) DO UPDATE SET
			state = excluded.state,
			run_id = excluded.run_id,
			total_files = excluded.total_files,
			synced_files = excluded.synced_files,
			failed_files = excluded.failed_files,
			chunk_count = excluded.chunk_count,
			last_sync_time = excluded.last_sync_time,
			last_sync_duration_ms = excluded.last_sync_duration_ms,
			last_error = excluded.last_error,
			errors = excluded.errors,
			warnings = excluded.warnings,
			progress = excluded.progress,
			updated_at = excluded.updated_at
	`
	_, err = q.ExecContext(ctx, query,
		st.Collection, string(st.State), st.RunID, st.TotalFiles, st.SyncedFiles, st.FailedFiles,
		st.ChunkCount, toMillis(st.LastSyncTime), st.LastSyncDuration.Milliseconds(), st.LastError,
		errs, warns, progress, updatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save sync status: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SaveSyncStatus(ctx context.Context, st *types.SyncStatus) error {
	return s.saveSyncStatusWithQuerier(ctx, s.querier(), st)
}

// deleteSyncStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteSyncStatusWithQuerier(ctx context.Context, q querier, collection string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM sync_status WHERE collection = ?`, collection)
	return err
}

func (s *SQLiteStorage) DeleteSyncStatus(ctx context.Context, collection string) error {
	return s.deleteSyncStatusWithQuerier(ctx, s.querier(), collection)
}

// Indexed file operations

func scanIndexedFile(row rowScanner) (*IndexedFile, error) {
	var f IndexedFile
	var hash []byte
	var indexedAt sql.NullInt64
	if err := row.Scan(&f.Collection, &f.Path, &hash, &f.ChunkCount, &f.Strategy, &indexedAt); err != nil {
		return nil, err
	}
	copy(f.SourceHash[:], hash)
	f.IndexedAt = fromMillis(indexedAt)
	return &f, nil
}

// getIndexedFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getIndexedFileWithQuerier(ctx context.Context, q querier, collection, path string) (*IndexedFile, error) {
	query := `
		SELECT collection, path, source_hash, chunk_count, strategy, indexed_at
		FROM indexed_files
		WHERE collection = ? AND path = ?
	`
	f, err := scanIndexedFile(q.QueryRowContext(ctx, query, collection, path))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *SQLiteStorage) GetIndexedFile(ctx context.Context, collection, path string) (*IndexedFile, error) {
	return s.getIndexedFileWithQuerier(ctx, s.querier(), collection, path)
}

// listIndexedFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listIndexedFilesWithQuerier(ctx context.Context, q querier, collection string) ([]*IndexedFile, error) {
	query := `
		SELECT collection, path, source_hash, chunk_count, strategy, indexed_at
		FROM indexed_files
		WHERE collection = ?
		ORDER BY path
	`
	rows, err := q.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*IndexedFile, 0)
	for rows.Next() {
		f, err := scanIndexedFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListIndexedFiles(ctx context.Context, collection string) ([]*IndexedFile, error) {
	return s.listIndexedFilesWithQuerier(ctx, s.querier(), collection)
}

// deleteIndexedFileWithQuerier removes a file and its chunk rows
func (s *SQLiteStorage) deleteIndexedFileWithQuerier(ctx context.Context, q querier, collection, path string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ? AND path = ?`, collection, path); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM indexed_files WHERE collection = ? AND path = ?`, collection, path); err != nil {
		return fmt.Errorf("failed to delete indexed file: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteIndexedFile(ctx context.Context, collection, path string) error {
	return s.withTx(ctx, func(q querier) error {
		return s.deleteIndexedFileWithQuerier(ctx, q, collection, path)
	})
}

// Chunk operations

// replaceFileChunksWithQuerier swaps the chunk rows of one file
func (s *SQLiteStorage) replaceFileChunksWithQuerier(ctx context.Context, q querier, file *IndexedFile, chunks []*types.Chunk) error {
	if file.IndexedAt.IsZero() {
		file.IndexedAt = time.Now()
	}
	file.ChunkCount = len(chunks)

	if _, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ? AND path = ?`, file.Collection, file.Path); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	fileQuery := `
		INSERT INTO indexed_files (collection, path, source_hash, chunk_count, strategy, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, path) DO UPDATE SET
			source_hash = excluded.source_hash,
			chunk_count = excluded.chunk_count,
			strategy = excluded.strategy,
			indexed_at = excluded.indexed_at
	`
	_, err := q.ExecContext(ctx, fileQuery,
		file.Collection, file.Path, file.SourceHash[:], file.ChunkCount, file.Strategy, file.IndexedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert indexed file: %w", err)
	}

	chunkQuery := `
		INSERT INTO chunks (
			id, collection, path, chunk_index, content, content_hash, source_hash,
			chunk_type, header_hierarchy, contains_code, language,
			overlap_source_ids, overlap_prefix, start_offset, end_offset
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, c := range chunks {
		if c.Collection != file.Collection || c.Path != file.Path {
			return fmt.Errorf("chunk %s does not belong to %s/%s", c.ID, file.Collection, file.Path)
		}
		hierarchy, err := encodeStrings(c.HeaderHierarchy)
		if err != nil {
			return err
		}
		overlaps, err := encodeStrings(c.OverlapSourceIDs)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, chunkQuery,
			c.ID, c.Collection, c.Path, c.ChunkIndex, c.Content, c.ContentHash[:], c.SourceHash[:],
			string(c.ChunkType), hierarchy, c.ContainsCode, c.Language,
			overlaps, c.OverlapPrefix, c.StartOffset, c.EndOffset,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

// ReplaceFileChunks atomically replaces the chunk rows of file
func (s *SQLiteStorage) ReplaceFileChunks(ctx context.Context, file *IndexedFile, chunks []*types.Chunk) error {
	return s.withTx(ctx, func(q querier) error {
		return s.replaceFileChunksWithQuerier(ctx, q, file, chunks)
	})
}

const chunkColumns = `
	id, collection, path, chunk_index, content, content_hash, source_hash,
	chunk_type, header_hierarchy, contains_code, language,
	overlap_source_ids, overlap_prefix, start_offset, end_offset
`

func scanChunk(row rowScanner) (*types.Chunk, error) {
	var c types.Chunk
	var contentHash, sourceHash []byte
	var chunkType, hierarchy, overlaps string
	var language sql.NullString

	err := row.Scan(
		&c.ID, &c.Collection, &c.Path, &c.ChunkIndex, &c.Content, &contentHash, &sourceHash,
		&chunkType, &hierarchy, &c.ContainsCode, &language,
		&overlaps, &c.OverlapPrefix, &c.StartOffset, &c.EndOffset,
	)
	if err != nil {
		return nil, err
	}

	copy(c.ContentHash[:], contentHash)
	copy(c.SourceHash[:], sourceHash)
	c.ChunkType = types.ChunkType(chunkType)
	c.Language = language.String
	if c.HeaderHierarchy, err = decodeStrings(hierarchy); err != nil {
		return nil, fmt.Errorf("failed to decode header hierarchy: %w", err)
	}
	if c.OverlapSourceIDs, err = decodeStrings(overlaps); err != nil {
		return nil, fmt.Errorf("failed to decode overlap ids: %w", err)
	}
	return &c, nil
}

// listChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listChunksWithQuerier(ctx context.Context, q querier, collection, path string) ([]*types.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE collection = ? AND path = ? ORDER BY chunk_index`
	rows, err := q.QueryContext(ctx, query, collection, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*types.Chunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunks(ctx context.Context, collection, path string) ([]*types.Chunk, error) {
	return s.listChunksWithQuerier(ctx, s.querier(), collection, path)
}

// listChunkIDsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listChunkIDsWithQuerier(ctx context.Context, q querier, collection, path string) ([]string, error) {
	query := `SELECT id FROM chunks WHERE collection = ? AND path = ? ORDER BY chunk_index`
	rows, err := q.QueryContext(ctx, query, collection, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStorage) ListChunkIDs(ctx context.Context, collection, path string) ([]string, error) {
	return s.listChunkIDsWithQuerier(ctx, s.querier(), collection, path)
}

// getChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getChunksWithQuerier(ctx context.Context, q querier, ids []string) (map[string]*types.Chunk, error) {
	out := make(map[string]*types.Chunk, len(ids))
	for _, batch := range batches(ids) {
		query := `SELECT ` + chunkColumns + ` FROM chunks WHERE id IN (` + placeholders(len(batch)) + `)`
		rows, err := q.QueryContext(ctx, query, stringArgs(batch)...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			c, err := scanChunk(rows)
			if err != nil {
				_ = rows.Close()
				return nil, err
			}
			out[c.ID] = c
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetChunks returns the chunks with the given ids. Unknown ids are absent
// from the result.
func (s *SQLiteStorage) GetChunks(ctx context.Context, ids []string) (map[string]*types.Chunk, error) {
	return s.getChunksWithQuerier(ctx, s.querier(), ids)
}

// countChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) countChunksWithQuerier(ctx context.Context, q querier, collection string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) CountChunks(ctx context.Context, collection string) (int, error) {
	return s.countChunksWithQuerier(ctx, s.querier(), collection)
}

// deleteCollectionChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteCollectionChunksWithQuerier(ctx context.Context, q querier, collection string) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM indexed_files WHERE collection = ?`, collection); err != nil {
		return 0, fmt.Errorf("failed to delete indexed files: %w", err)
	}
	return int(n), nil
}

// DeleteCollectionChunks clears the chunk table of a collection
func (s *SQLiteStorage) DeleteCollectionChunks(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.withTx(ctx, func(q querier) error {
		var err error
		n, err = s.deleteCollectionChunksWithQuerier(ctx, q, collection)
		return err
	})
	return n, err
}

// Embedding operations

// upsertEmbeddingsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertEmbeddingsWithQuerier(ctx context.Context, q querier, embeddings []*Embedding) error {
	query := `
		INSERT INTO vectors (chunk_id, collection, path, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			collection = excluded.collection,
			path = excluded.path,
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model,
			created_at = excluded.created_at
	`
	now := time.Now()
	for _, e := range embeddings {
		if e.Dimension <= 0 || len(e.Vector) != e.Dimension*4 {
			return fmt.Errorf("embedding %s: dimension %d does not match %d bytes", e.ChunkID, e.Dimension, len(e.Vector))
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		_, err := q.ExecContext(ctx, query,
			e.ChunkID, e.Collection, e.Path, e.Vector, e.Dimension, e.Provider, e.Model, e.CreatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to upsert embedding: %w", err)
		}
	}
	return nil
}

// UpsertEmbeddings stores embeddings atomically
func (s *SQLiteStorage) UpsertEmbeddings(ctx context.Context, embeddings []*Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	return s.withTx(ctx, func(q querier) error {
		return s.upsertEmbeddingsWithQuerier(ctx, q, embeddings)
	})
}

// deleteEmbeddingsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteEmbeddingsWithQuerier(ctx context.Context, q querier, chunkIDs []string) (int, error) {
	total := 0
	for _, batch := range batches(chunkIDs) {
		query := `DELETE FROM vectors WHERE chunk_id IN (` + placeholders(len(batch)) + `)`
		result, err := q.ExecContext(ctx, query, stringArgs(batch)...)
		if err != nil {
			return total, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, err
		}
		total += int(n)
	}
	return total, nil
}

// DeleteEmbeddings removes vectors by chunk id. Unknown ids are ignored.
func (s *SQLiteStorage) DeleteEmbeddings(ctx context.Context, chunkIDs []string) (int, error) {
	return s.deleteEmbeddingsWithQuerier(ctx, s.querier(), chunkIDs)
}

// deleteCollectionEmbeddingsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteCollectionEmbeddingsWithQuerier(ctx context.Context, q querier, collection string) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM vectors WHERE collection = ?`, collection)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (s *SQLiteStorage) DeleteCollectionEmbeddings(ctx context.Context, collection string) (int, error) {
	return s.deleteCollectionEmbeddingsWithQuerier(ctx, s.querier(), collection)
}

// countEmbeddingsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) countEmbeddingsWithQuerier(ctx context.Context, q querier, collection string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors WHERE collection = ?`, collection).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) CountEmbeddings(ctx context.Context, collection string) (int, error) {
	return s.countEmbeddingsWithQuerier(ctx, s.querier(), collection)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.querier(), vector, limit, filters)
}

// Transaction delegation

func (t *sqliteTx) GetSyncStatus(ctx context.Context, collection string) (*types.SyncStatus, error) {
	return t.storage.getSyncStatusWithQuerier(ctx, t.querier(), collection)
}

func (t *sqliteTx) ListSyncStatuses(ctx context.Context) ([]*types.SyncStatus, error) {
	return t.storage.listSyncStatusesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) SaveSyncStatus(ctx context.Context, st *types.SyncStatus) error {
	return t.storage.saveSyncStatusWithQuerier(ctx, t.querier(), st)
}

func (t *sqliteTx) DeleteSyncStatus(ctx context.Context, collection string) error {
	return t.storage.deleteSyncStatusWithQuerier(ctx, t.querier(), collection)
}

func (t *sqliteTx) GetIndexedFile(ctx context.Context, collection, path string) (*IndexedFile, error) {
	return t.storage.getIndexedFileWithQuerier(ctx, t.querier(), collection, path)
}

func (t *sqliteTx) ListIndexedFiles(ctx context.Context, collection string) ([]*IndexedFile, error) {
	return t.storage.listIndexedFilesWithQuerier(ctx, t.querier(), collection)
}

func (t *sqliteTx) DeleteIndexedFile(ctx context.Context, collection, path string) error {
	return t.storage.deleteIndexedFileWithQuerier(ctx, t.querier(), collection, path)
}

func (t *sqliteTx) ReplaceFileChunks(ctx context.Context, file *IndexedFile, chunks []*types.Chunk) error {
	return t.storage.replaceFileChunksWithQuerier(ctx, t.querier(), file, chunks)
}

func (t *sqliteTx) ListChunks(ctx context.Context, collection, path string) ([]*types.Chunk, error) {
	return t.storage.listChunksWithQuerier(ctx, t.querier(), collection, path)
}

func (t *sqliteTx) ListChunkIDs(ctx context.Context, collection, path string) ([]string, error) {
	return t.storage.listChunkIDsWithQuerier(ctx, t.querier(), collection, path)
}

func (t *sqliteTx) GetChunks(ctx context.Context, ids []string) (map[string]*types.Chunk, error) {
	return t.storage.getChunksWithQuerier(ctx, t.querier(), ids)
}

func (t *sqliteTx) CountChunks(ctx context.Context, collection string) (int, error) {
	return t.storage.countChunksWithQuerier(ctx, t.querier(), collection)
}

func (t *sqliteTx) DeleteCollectionChunks(ctx context.Context, collection string) (int, error) {
	return t.storage.deleteCollectionChunksWithQuerier(ctx, t.querier(), collection)
}

func (t *sqliteTx) UpsertEmbeddings(ctx context.Context, embeddings []*Embedding) error {
	return t.storage.upsertEmbeddingsWithQuerier(ctx, t.querier(), embeddings)
}

func (t *sqliteTx) DeleteEmbeddings(ctx context.Context, chunkIDs []string) (int, error) {
	return t.storage.deleteEmbeddingsWithQuerier(ctx, t.querier(), chunkIDs)
}

func (t *sqliteTx) DeleteCollectionEmbeddings(ctx context.Context, collection string) (int, error) {
	return t.storage.deleteCollectionEmbeddingsWithQuerier(ctx, t.querier(), collection)
}

func (t *sqliteTx) CountEmbeddings(ctx context.Context, collection string) (int, error) {
	return t.storage.countEmbeddingsWithQuerier(ctx, t.querier(), collection)
}

func (t *sqliteTx) SearchVector(ctx context.Context, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, t.querier(), vector, limit, filters)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
