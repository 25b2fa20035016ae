// Package vectorindex adapts embedding and vector storage services to the
// narrow Index interface used by the sync engine: embed, upsert, delete and
// query.
//
// Two backends exist. Local stores vectors in the SQLite database next to
// the chunk table and scores them with cosine similarity, in SQL when the
// sqlite-vec extension is compiled in. Qdrant talks to a Qdrant server over
// REST and keeps every engine collection in one Qdrant collection tagged
// by payload.
//
// Both embed through an embedder.Embedder. Exactly one Index is built per
// process and shared by the syncer and the searcher.
package vectorindex
