// Package mcpserver exposes search, rating and list membership as MCP tools
// so an agent can curate with the same filter container and REST client the
// web views use.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/filters"
)

const (
	ServerName    = "photo-curator"
	ServerVersion = "v1.0.0"
)

// Backend is the part of the REST client the tools call.
type Backend interface {
	filters.ImageLister
	SetRating(ctx context.Context, id int64, rating *int) error
	AddToList(ctx context.Context, listID string, photoID int64) (api.ListItem, error)
}

var _ Backend = (*api.Client)(nil)

// Server wraps the MCP server.
type Server struct {
	mcpServer *mcp.Server
	backend   Backend
	tenant    string
}

// NewServer creates the server and registers its tools.
func NewServer(b Backend, tenant string) *Server {
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil),
		backend:   b,
		tenant:    tenant,
	}
	mcp.AddTool(s.mcpServer, searchTool(), s.handleSearch)
	mcp.AddTool(s.mcpServer, rateTool(), s.handleRate)
	mcp.AddTool(s.mcpServer, addToListTool(), s.handleAddToList)
	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	log.Info().Str("tenant", s.tenant).Msg("MCP server listening on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
