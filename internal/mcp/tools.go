package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/vecsync-mcp/internal/searcher"
	"github.com/dshills/vecsync-mcp/internal/source"
	"github.com/dshills/vecsync-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeCollectionNotFound = -32001 // Source holds no such collection
	ErrorCodeSyncInProgress     = -32002 // Another run of the collection is active
	ErrorCodeIndexUnavailable   = -32003 // Embedding or vector index service unreachable
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleSyncCollection handles the sync_collection tool invocation
func (s *Server) handleSyncCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, collection, err := collectionArgs(request)
	if err != nil {
		return nil, err
	}
	force := getBoolDefault(args, "force", false)
	wait := getBoolDefault(args, "wait", true)

	var st *types.SyncStatus
	switch {
	case !wait && force:
		st, err = s.syncer.StartForceResync(collection)
	case !wait:
		st, err = s.syncer.StartSync(collection)
	case force:
		st, err = s.syncer.ForceResync(ctx, collection)
	default:
		st, err = s.syncer.Sync(ctx, collection)
	}
	if st == nil {
		return nil, toMCPError("sync failed", err)
	}

	response := statusResponse(st, st.State)
	if err != nil {
		// the run happened and its failure is recorded in the status
		response["error"] = err.Error()
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetSyncStatus handles the get_sync_status tool invocation
func (s *Server) handleGetSyncStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, collection, err := collectionArgs(request)
	if err != nil {
		return nil, err
	}

	st, err := s.syncer.GetStatus(ctx, collection)
	if err != nil {
		return nil, toMCPError("failed to get sync status", err)
	}
	display := st.State
	if getBoolDefault(args, "check_pending", true) {
		display = s.syncer.DisplayState(ctx, st)
	}
	return mcp.NewToolResultText(formatJSON(statusResponse(st, display))), nil
}

// handleListSyncStatuses handles the list_sync_statuses tool invocation
func (s *Server) handleListSyncStatuses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statuses, err := s.syncer.GetAllStatuses(ctx)
	if err != nil {
		return nil, toMCPError("failed to list sync statuses", err)
	}

	items := make([]map[string]interface{}, 0, len(statuses))
	for _, st := range statuses {
		items = append(items, statusResponse(st, s.syncer.DisplayState(ctx, st)))
	}
	response := map[string]interface{}{
		"collections": items,
		"count":       len(items),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handlePendingChanges handles the pending_changes tool invocation
func (s *Server) handlePendingChanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, collection, err := collectionArgs(request)
	if err != nil {
		return nil, err
	}

	cs, err := s.syncer.PendingChanges(ctx, collection)
	if err != nil {
		return nil, toMCPError("failed to compute pending changes", err)
	}
	response := map[string]interface{}{
		"collection": collection,
		"pending":    cs.Pending(),
		"added":      nonNil(cs.Added),
		"modified":   nonNil(cs.Modified),
		"deleted":    nonNil(cs.Deleted),
		"unchanged":  len(cs.Unchanged),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchChunks handles the search_chunks tool invocation
func (s *Server) handleSearchChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	k := getIntDefault(args, "k", searcher.DefaultLimit)
	if k < 1 || k > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "k must be between 1 and 100", map[string]interface{}{
			"param": "k",
			"value": k,
		})
	}
	threshold := getFloatDefault(args, "similarity_threshold", 0)
	if threshold < 0 || threshold > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "similarity_threshold must be between 0 and 1", map[string]interface{}{
			"param": "similarity_threshold",
			"value": threshold,
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:      query,
		Collection: getStringDefault(args, "collection", ""),
		Limit:      k,
		MinScore:   threshold,
		UseCache:   true,
		CacheTTL:   s.app.Config.SearchCacheTTL(),
	})
	if errors.Is(err, searcher.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", nil)
	}
	if err != nil {
		return nil, toMCPError("search failed", err)
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		item := map[string]interface{}{
			"rank":        r.Rank,
			"score":       r.Score,
			"chunk_id":    r.ChunkID,
			"collection":  r.Collection,
			"path":        r.Path,
			"chunk_index": r.ChunkIndex,
			"chunk_type":  r.ChunkType,
			"hierarchy":   nonNil(r.HeaderHierarchy),
			"content":     r.Content,
		}
		if r.Language != "" {
			item["language"] = r.Language
		}
		results = append(results, item)
	}
	response := map[string]interface{}{
		"results":     results,
		"total":       resp.TotalResults,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteVectors handles the delete_vectors tool invocation
func (s *Server) handleDeleteVectors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, collection, err := collectionArgs(request)
	if err != nil {
		return nil, err
	}

	st, err := s.syncer.DeleteVectors(ctx, collection)
	if err != nil {
		return nil, toMCPError("failed to delete vectors", err)
	}
	return mcp.NewToolResultText(formatJSON(statusResponse(st, st.State))), nil
}

// handleDeleteCollection handles the delete_collection tool invocation
func (s *Server) handleDeleteCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, collection, err := collectionArgs(request)
	if err != nil {
		return nil, err
	}

	if err := s.syncer.DeleteCollection(ctx, collection); err != nil {
		return nil, toMCPError("failed to delete collection", err)
	}
	response := map[string]interface{}{
		"collection": collection,
		"deleted":    true,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// collectionArgs extracts the arguments map and the required collection
func collectionArgs(request mcp.CallToolRequest) (map[string]interface{}, string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	collection, ok := args["collection"].(string)
	if !ok || collection == "" {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "collection parameter is required", map[string]interface{}{
			"param":  "collection",
			"reason": "missing or empty",
		})
	}
	return args, collection, nil
}

// statusResponse renders a status, with display as the reported state
func statusResponse(st *types.SyncStatus, display types.SyncState) map[string]interface{} {
	response := map[string]interface{}{
		"collection":   st.Collection,
		"state":        display,
		"total_files":  st.TotalFiles,
		"synced_files": st.SyncedFiles,
		"failed_files": st.FailedFiles,
		"chunk_count":  st.ChunkCount,
		"errors":       nonNil(st.Errors),
		"warnings":     nonNil(st.Warnings),
	}
	if st.RunID != "" {
		response["run_id"] = st.RunID
	}
	if !st.LastSyncTime.IsZero() {
		response["last_sync_time"] = st.LastSyncTime.Format(time.RFC3339)
		response["last_sync_duration_ms"] = st.LastSyncDuration.Milliseconds()
	}
	if st.LastError != "" {
		response["last_error"] = st.LastError
	}
	if st.Progress != nil {
		response["progress"] = st.Progress
	}
	return response
}

// toMCPError maps engine errors onto MCP error codes
func toMCPError(message string, err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, types.ErrSyncInProgress):
		return newMCPError(ErrorCodeSyncInProgress, "a sync of this collection is already running", data)
	case errors.Is(err, source.ErrUnknownCollection):
		return newMCPError(ErrorCodeCollectionNotFound, "collection not found", data)
	case errors.Is(err, types.ErrIndexUnavailable):
		return newMCPError(ErrorCodeIndexUnavailable, "vector index unavailable", data)
	case errors.Is(err, types.ErrCollectionMissing):
		return newMCPError(ErrorCodeInvalidParams, "collection parameter is required", data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
