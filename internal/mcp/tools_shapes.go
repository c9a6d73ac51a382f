package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"canvas/internal/domain"
	"canvas/internal/optimistic"
	"canvas/internal/transform"
)

func (s *Server) registerShapeTools() {
	// ── create_shape ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_shape",
		mcp.WithDescription("Create a shape with default size and content. Without pageId it is centred on (x, y); with pageId it takes the first free grid spot inside that page."),
		mcp.WithString("type",
			mcp.Description("Shape type: page, button, inputField, text, checkbox, radio, toggle, card, image, dropdown, circle, chatbot, divider, navigation, instance, rectangle"),
			mcp.Required(),
		),
		mcp.WithNumber("x", mcp.Description("View centre X (global)")),
		mcp.WithNumber("y", mcp.Description("View centre Y (global)")),
		mcp.WithString("pageId", mcp.Description("Place inside this page (optional)")),
	), s.handleCreateShape)

	// ── drag_shape ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("drag_shape",
		mcp.WithDescription("Drop a shape at (x, y) in its render space: page-local for a child, global otherwise. A page carries its children; a child is re-hosted by the page that now contains it."),
		mcp.WithString("shapeId", mcp.Description("Shape ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("Release X"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Release Y"), mcp.Required()),
		mcp.WithBoolean("copy", mcp.Description("Alt-drag: leave a copy at the original position")),
	), s.handleDragShape)

	// ── group_drag ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("group_drag",
		mcp.WithDescription("Move the selection by (dx, dy)"),
		mcp.WithString("shapeIds", mcp.Description("Comma-separated IDs to select first (optional, defaults to the current selection)")),
		mcp.WithNumber("dx", mcp.Description("Delta X"), mcp.Required()),
		mcp.WithNumber("dy", mcp.Description("Delta Y"), mcp.Required()),
	), s.handleGroupDrag)

	// ── resize_shape ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_shape",
		mcp.WithDescription("Resize a shape by dragging one of its handles; the opposite edge stays put"),
		mcp.WithString("shapeId", mcp.Description("Shape ID"), mcp.Required()),
		mcp.WithString("handle",
			mcp.Description("top, right, bottom, left, topRight, bottomRight, bottomLeft or topLeft"),
			mcp.Required(),
		),
		mcp.WithNumber("dw", mcp.Description("Width delta (positive grows)")),
		mcp.WithNumber("dh", mcp.Description("Height delta (positive grows)")),
	), s.handleResizeShape)

	// ── reorder ────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reorder",
		mcp.WithDescription("Change the stacking order of the selection. A child never drops below its page."),
		mcp.WithString("direction", mcp.Description("up, down, front or back"), mcp.Required()),
		mcp.WithString("shapeIds", mcp.Description("Comma-separated IDs to select first (optional)")),
	), s.handleReorder)

	// ── copy_shapes ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("copy_shapes",
		mcp.WithDescription("Duplicate shapes in place with fresh IDs; a copied page brings copies of its children. The copies become the selection."),
		mcp.WithString("shapeIds", mcp.Description("Comma-separated IDs (optional, defaults to the selection)")),
	), s.handleCopyShapes)

	// ── arrange ────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("arrange",
		mcp.WithDescription("Lay shapes out in grid-snapped rows starting at (x, y)"),
		mcp.WithString("shapeIds", mcp.Description("Comma-separated IDs (optional, defaults to the selection)")),
		mcp.WithNumber("x", mcp.Description("Origin X"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Origin Y"), mcp.Required()),
		mcp.WithNumber("maxRowWidth", mcp.Description("Wrap rows wider than this (default 1000)")),
	), s.handleArrange)

	// ── delete_shapes (destructive) ────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_shapes",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete shapes. Children of a deleted page are kept without a page. Undo restores them."),
		mcp.WithString("shapeIds", mcp.Description("Comma-separated IDs (optional, defaults to the selection)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteShapes)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last gesture"),
	), s.handleUndo)
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone gesture"),
	), s.handleRedo)
}

func (s *Server) handleCreateShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	t := domain.ShapeType(req.GetString("type", ""))
	pageID := req.GetString("pageId", "")

	var (
		shape domain.Shape
		m     *optimistic.Mutation
		err   error
	)
	if pageID != "" {
		shape, m, err = s.app.CreateInPage(t, pageID)
	} else {
		shape, m, err = s.app.CreateShape(t, getPoint(args, "x", "y"))
	}
	if err != nil {
		return nil, fmt.Errorf("create shape: %w", err)
	}
	return jsonResult(map[string]any{"shape": shape, "mutations": settle(ctx, m)})
}

func (s *Server) handleDragShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := req.GetString("shapeId", "")
	if id == "" {
		return nil, fmt.Errorf("shapeId is required")
	}
	release := getPoint(args, "x", "y")

	if copyMode, _ := args["copy"].(bool); copyMode {
		copies, copied, moved, err := s.app.DragCopy(id, release)
		if err != nil {
			return nil, fmt.Errorf("drag copy: %w", err)
		}
		return jsonResult(map[string]any{"copies": copies, "mutations": settle(ctx, copied, moved)})
	}

	m, err := s.app.DragStop(id, release)
	if err != nil {
		return nil, fmt.Errorf("drag shape: %w", err)
	}
	return s.shapeResult(ctx, id, m)
}

func (s *Server) handleGroupDrag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	s.selectFrom(args)
	m, err := s.app.GroupDrag(getPoint(args, "dx", "dy"))
	if err != nil {
		return nil, fmt.Errorf("group drag: %w", err)
	}
	return jsonResult(map[string]any{"selection": s.app.Selection(), "mutations": settle(ctx, m)})
}

func (s *Server) handleResizeShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := req.GetString("shapeId", "")
	delta := transform.Size{Width: getFloat(args, "dw", 0), Height: getFloat(args, "dh", 0)}

	m, err := s.app.Resize(id, req.GetString("handle", ""), delta)
	if err != nil {
		return nil, fmt.Errorf("resize shape: %w", err)
	}
	return s.shapeResult(ctx, id, m)
}

func (s *Server) handleReorder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.selectFrom(req.GetArguments())
	m, err := s.app.Reorder(req.GetString("direction", ""))
	if err != nil {
		return nil, fmt.Errorf("reorder: %w", err)
	}
	return jsonResult(map[string]any{"selection": s.app.Selection(), "mutations": settle(ctx, m)})
}

func (s *Server) handleCopyShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	copies, m, err := s.app.Copy(splitIDs(req.GetString("shapeIds", "")))
	if err != nil {
		return nil, fmt.Errorf("copy shapes: %w", err)
	}
	return jsonResult(map[string]any{"copies": copies, "mutations": settle(ctx, m)})
}

func (s *Server) handleArrange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids := splitIDs(req.GetString("shapeIds", ""))
	m, err := s.app.Arrange(ids, getPoint(args, "x", "y"), getFloat(args, "maxRowWidth", 1000))
	if err != nil {
		return nil, fmt.Errorf("arrange: %w", err)
	}
	return jsonResult(map[string]any{"mutations": settle(ctx, m)})
}

func (s *Server) handleDeleteShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitIDs(req.GetString("shapeIds", ""))
	m, err := s.app.Delete(ids)
	if err != nil {
		return nil, fmt.Errorf("delete shapes: %w", err)
	}
	s.log.Info("shapes deleted via MCP", zap.Strings("ids", m.Keys))
	return jsonResult(map[string]any{"mutations": settle(ctx, m)})
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, err := s.app.Undo()
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"mutations": settle(ctx, ms...)})
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, err := s.app.Redo()
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"mutations": settle(ctx, ms...)})
}

// selectFrom replaces the selection when the call names shapeIds.
func (s *Server) selectFrom(args map[string]any) {
	if idsStr, _ := args["shapeIds"].(string); idsStr != "" {
		s.app.Select(splitIDs(idsStr), false)
	}
}

// shapeResult reports a settled single-shape gesture with the shape as it
// now sits in the cache.
func (s *Server) shapeResult(ctx context.Context, id string, m *optimistic.Mutation) (*mcp.CallToolResult, error) {
	reports := settle(ctx, m)
	shape, ok := s.app.Engine().Cache().Get(id)
	if !ok {
		return jsonResult(map[string]any{"mutations": reports})
	}
	pos, _ := s.app.RenderPosition(id)
	return jsonResult(map[string]any{
		"shape":     shapeView{Shape: shape, Render: pos},
		"mutations": reports,
	})
}
