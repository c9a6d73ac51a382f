package mcpserver

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"canvas/internal/app"
)

// Server is the MCP front of a canvas. Agents read the page tree and
// perform the same gestures a pointer would: drag, resize, reorder, copy.
type Server struct {
	mcp *server.MCPServer
	app *app.App
	log *zap.Logger
}

// Deps holds all dependencies passed from the CLI to the MCP server.
type Deps struct {
	App     *app.App
	Logger  *zap.Logger
	Version string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	s := &Server{app: deps.App, log: deps.Logger}

	s.mcp = server.NewMCPServer(
		"canvas-mcp",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerCanvasTools()
	s.registerShapeTools()
	s.registerPathTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout. It returns when the
// client disconnects.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.log.Info("starting MCP stdio server")
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}
