package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/vecsync-mcp/internal/app"
	"github.com/dshills/vecsync-mcp/internal/searcher"
	"github.com/dshills/vecsync-mcp/internal/syncer"
)

const (
	// ServerName is the MCP server name
	ServerName = "vecsync-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes the sync engine as MCP tools
type Server struct {
	mcp      *server.MCPServer
	app      *app.App
	syncer   *syncer.Syncer
	searcher *searcher.Searcher
	logger   *slog.Logger
}

// NewServer registers the tools on top of the shared components of a
func NewServer(a *app.App) *Server {
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		app:      a,
		syncer:   a.Syncer,
		searcher: a.Searcher,
		logger:   a.Logger,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio until the client disconnects. The
// caller owns the app and closes it afterwards.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp: serving on stdio", slog.String("version", ServerVersion))
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(syncCollectionTool(), s.handleSyncCollection)
	s.mcp.AddTool(getSyncStatusTool(), s.handleGetSyncStatus)
	s.mcp.AddTool(listSyncStatusesTool(), s.handleListSyncStatuses)
	s.mcp.AddTool(pendingChangesTool(), s.handlePendingChanges)
	s.mcp.AddTool(searchChunksTool(), s.handleSearchChunks)
	s.mcp.AddTool(deleteVectorsTool(), s.handleDeleteVectors)
	s.mcp.AddTool(deleteCollectionTool(), s.handleDeleteCollection)
}
