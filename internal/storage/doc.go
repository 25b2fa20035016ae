// Package storage persists everything the sync engine needs to survive a
// restart in a single SQLite database.
//
// Four tables carry the state:
//
//   - sync_status holds one row per collection. Errors, warnings and the
//     running progress snapshot are JSON columns.
//   - indexed_files records, per (collection, path), the source hash the
//     file was last chunked from and the strategy that chunked it.
//   - chunks has one row per vector believed to be in the index. Rows are
//     keyed by the deterministic chunk id and cascade from indexed_files.
//   - vectors is only used by the local index backend.
//
// Timestamps are unix milliseconds.
//
// ReplaceFileChunks swaps all chunks of one file atomically:
//
//	err := db.ReplaceFileChunks(ctx, &storage.IndexedFile{
//	    Collection: "docs",
//	    Path:       "guide/intro.md",
//	    SourceHash: rec.ContentHash,
//	    Strategy:   "structure",
//	}, chunks)
//
// Callers that need several writes to commit together use BeginTx.
//
// Two drivers are supported. The default build uses modernc.org/sqlite and
// scores vectors in Go. Building with CGO_ENABLED=1 and -tags sqlite_vec
// switches to mattn/go-sqlite3 with the sqlite-vec extension loaded, and
// similarity is computed in SQL by vec_distance_cosine. BuildMode and
// DriverName report which one is compiled in.
package storage
