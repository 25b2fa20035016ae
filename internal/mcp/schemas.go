package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func collectionProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// syncCollectionTool returns the tool definition for sync_collection
func syncCollectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sync_collection",
		Description: "Synchronize a collection's files with the vector index, re-embedding only what changed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": collectionProperty("Collection name"),
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, delete every vector of the collection and re-index all files",
					"default":     false,
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, block until the run finishes; otherwise return the syncing status immediately",
					"default":     true,
				},
			},
			Required: []string{"collection"},
		},
	}
}

// getSyncStatusTool returns the tool definition for get_sync_status
func getSyncStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_sync_status",
		Description: "Get the sync state, counters, errors and live progress of a collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": collectionProperty("Collection name"),
				"check_pending": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, report in_sync collections with source changes as out_of_sync",
					"default":     true,
				},
			},
			Required: []string{"collection"},
		},
	}
}

// listSyncStatusesTool returns the tool definition for list_sync_statuses
func listSyncStatusesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_sync_statuses",
		Description: "List the sync status of every known collection",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// pendingChangesTool returns the tool definition for pending_changes
func pendingChangesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "pending_changes",
		Description: "List files a sync would add, modify or delete, without touching the index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": collectionProperty("Collection name"),
			},
			Required: []string{"collection"},
		},
	}
}

// searchChunksTool returns the tool definition for search_chunks
func searchChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_chunks",
		Description: "Semantic search over synced chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query",
				},
				"collection": collectionProperty("Restrict results to one collection; omit to search all"),
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"similarity_threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity (0.0-1.0); 0 disables the threshold",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// deleteVectorsTool returns the tool definition for delete_vectors
func deleteVectorsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_vectors",
		Description: "Delete every vector of a collection and reset it to never_synced; source files are untouched",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": collectionProperty("Collection name"),
			},
			Required: []string{"collection"},
		},
	}
}

// deleteCollectionTool returns the tool definition for delete_collection
func deleteCollectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_collection",
		Description: "Cancel any run of a collection, delete its vectors, chunk records and sync status",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": collectionProperty("Collection name"),
			},
			Required: []string{"collection"},
		},
	}
}
