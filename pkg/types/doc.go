// Package types provides shared type definitions for the vecsync engine.
//
// This package defines the domain types used across the chunker, the change
// detector, the sync orchestrator and the search layer: source file records,
// chunks, per-collection sync status and search results.
//
// # Core Types
//
// FileRecord is an observed source file. The engine never mutates it:
//
//	rec := types.NewFileRecord("docs", "guide/install.md", content)
//	fmt.Println(types.HexHash(rec.ContentHash))
//
// Chunk is a retrievable unit of a file. Its ID is derived from the
// collection, path, chunk index and content hash, so re-chunking identical
// input yields identical ids:
//
//	chunk := &types.Chunk{
//	    Collection: "docs",
//	    Path:       "guide/install.md",
//	    ChunkIndex: 0,
//	    Content:    "# Install\n\nRun the installer.\n",
//	    ChunkType:  types.ChunkHeaderSection,
//	}
//	chunk.ComputeContentHash()
//	chunk.AssignID()
//
// SyncStatus is the persisted per-collection state machine:
//
//	never_synced ──► syncing ──► in_sync | partial_sync | sync_error
//	     ▲                                     │
//	     └──────────── reset (delete) ◄────────┘
//
// Terminal states may start a new run; a run in syncing may only finish.
// The out_of_sync state is never stored. DisplayState derives it from an
// in_sync status with pending source changes.
//
// # Hashing
//
// HashContent is SHA-256 over raw bytes. It is used both for whole-file
// change detection and for per-chunk identity.
package types
