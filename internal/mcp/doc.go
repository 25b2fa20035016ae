// Package mcp exposes the vector sync engine over the Model Context
// Protocol on stdio.
//
// # Tools
//
// sync_collection: run an incremental sync, or a force resync with
// force=true. With wait=false the tool returns the syncing status at once
// and the run continues in the background; poll get_sync_status for its
// progress.
//
// get_sync_status: persisted state, file and chunk counters, the bounded
// error and warning lists, and live progress while syncing. An in_sync
// collection whose source files changed is reported as out_of_sync.
//
// list_sync_statuses: every collection known to the source or the status
// store, sorted by name.
//
// pending_changes: the files a sync would add, modify or delete.
//
// search_chunks: semantic search with optional collection scope, k and
// similarity_threshold.
//
// delete_vectors: purge a collection from the index and reset it to
// never_synced. Source files are not touched.
//
// delete_collection: cancel any run, purge the index and chunk table and
// drop the status row.
//
// # Errors
//
// Handlers return MCPError values:
//
//	-32602  invalid parameters
//	-32603  internal error
//	-32001  collection not found
//	-32002  sync already in progress
//	-32003  vector index unavailable
//	-32004  empty query
//
// A sync that ran but ended in sync_error is not a protocol error: the
// result carries the status and an "error" field.
package mcp
