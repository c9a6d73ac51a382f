package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"canvas/internal/domain"
	"canvas/internal/geometry"
)

func (s *Server) registerCanvasTools() {
	// ── get_tree ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the page hierarchy: every page with its children, plus shapes that belong to no page"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetTree)

	// ── list_shapes ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_shapes",
		mcp.WithDescription("List shapes with their global offsets and render positions (page-local for children)"),
		mcp.WithString("pageId", mcp.Description("Only list children of this page (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListShapes)

	// ── select ─────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select",
		mcp.WithDescription("Select shapes for group operations (group_drag, reorder, copy_shapes, delete_shapes)"),
		mcp.WithString("shapeIds", mcp.Description("Comma-separated shape IDs; empty clears the selection"), mcp.Required()),
		mcp.WithBoolean("additive", mcp.Description("Add to the current selection instead of replacing it")),
	), s.handleSelect)
}

type shapeView struct {
	domain.Shape
	Render geometry.Point `json:"render"`
}

func (s *Server) handleGetTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree := s.app.Tree()
	tree.Repairs = nil
	return jsonResult(tree)
}

func (s *Server) handleListShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	shapes := s.app.Shapes()
	pages := geometry.IndexPages(shapes)

	views := make([]shapeView, 0, len(shapes))
	for _, sh := range shapes {
		if pageID != "" && sh.PageID != pageID {
			continue
		}
		views = append(views, shapeView{Shape: sh, Render: geometry.RenderPosition(sh, pages)})
	}
	return jsonResult(views)
}

func (s *Server) handleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	idsStr, _ := args["shapeIds"].(string)
	additive, _ := args["additive"].(bool)

	ids := splitIDs(idsStr)
	if len(ids) == 0 && !additive {
		s.app.ClearSelection()
		return textResult("Selection cleared"), nil
	}
	selected := s.app.Select(ids, additive)
	if len(selected) == 0 {
		return nil, fmt.Errorf("none of %v exists", ids)
	}
	return jsonResult(map[string]any{"selection": selected})
}
