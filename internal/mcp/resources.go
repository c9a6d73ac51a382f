package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	stateURI = "canvas://state"
	treeURI  = "canvas://tree"
)

func (s *Server) registerResources() {
	// ── canvas://state ─────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		stateURI,
		"Canvas shapes and connectors",
		mcp.WithMIMEType("application/json"),
	), s.handleStateResource)

	// ── canvas://tree ──────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		treeURI,
		"Page hierarchy",
		mcp.WithMIMEType("application/json"),
	), s.handleTreeResource)
}

func (s *Server) handleStateResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	state, err := s.app.CanvasState(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(stateURI, state)
}

func (s *Server) handleTreeResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	tree := s.app.Tree()
	tree.Repairs = nil
	return jsonContents(treeURI, tree)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
