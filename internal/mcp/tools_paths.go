package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"canvas/internal/route"
)

func (s *Server) registerPathTools() {
	s.mcp.AddTool(mcp.NewTool("create_path",
		mcp.WithDescription("Connect two shapes with an orthogonal connector. Handles are chosen facing each other; a shape has at most one outgoing connector, so an existing one is replaced."),
		mcp.WithString("startId", mcp.Description("Start shape ID"), mcp.Required()),
		mcp.WithString("endId", mcp.Description("End shape ID"), mcp.Required()),
	), s.handleCreatePath)

	s.mcp.AddTool(mcp.NewTool("retarget_path",
		mcp.WithDescription("Point an existing connector at a different end shape"),
		mcp.WithString("pathId", mcp.Description("Path ID"), mcp.Required()),
		mcp.WithString("endId", mcp.Description("New end shape ID"), mcp.Required()),
	), s.handleRetargetPath)

	s.mcp.AddTool(mcp.NewTool("route_path",
		mcp.WithDescription("Compute the polyline of a connector around its obstacles"),
		mcp.WithString("pathId", mcp.Description("Path ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleRoutePath)

	s.mcp.AddTool(mcp.NewTool("list_paths",
		mcp.WithDescription("List all connectors"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListPaths)

	s.mcp.AddTool(mcp.NewTool("delete_path",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a connector"),
		mcp.WithString("pathId", mcp.Description("Path ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeletePath)
}

func (s *Server) handleCreatePath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startID := req.GetString("startId", "")
	endID := req.GetString("endId", "")
	if startID == "" || endID == "" {
		return nil, fmt.Errorf("startId and endId are required")
	}
	p, err := s.app.CreatePath(ctx, startID, endID)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"multipagePath": p})
}

func (s *Server) handleRetargetPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pathID := req.GetString("pathId", "")
	endID := req.GetString("endId", "")
	if err := s.app.RetargetPath(ctx, pathID, endID); err != nil {
		return nil, fmt.Errorf("retarget path: %w", err)
	}
	return textResult(fmt.Sprintf("Path %s now ends at %s", pathID, endID)), nil
}

func (s *Server) handleRoutePath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pts, err := s.app.RoutePath(ctx, req.GetString("pathId", ""))
	if err != nil {
		return nil, fmt.Errorf("route path: %w", err)
	}
	length, _ := route.Length(pts)
	return jsonResult(map[string]any{"points": pts, "length": length})
}

func (s *Server) handleListPaths(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := s.app.ListPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	return jsonResult(paths)
}

func (s *Server) handleDeletePath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pathID := req.GetString("pathId", "")
	if err := s.app.DeletePath(ctx, pathID); err != nil {
		return nil, fmt.Errorf("delete path: %w", err)
	}
	return textResult(fmt.Sprintf("Path %s deleted", pathID)), nil
}
