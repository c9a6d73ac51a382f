package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("wireframe_flow",
		mcp.WithPromptDescription("Lay out a multi-page wireframe flow and connect the pages"),
		mcp.WithArgument("flow",
			mcp.ArgumentDescription("Short description of the user flow, e.g. signup → verify email → dashboard"),
			mcp.RequiredArgument(),
		),
	), s.handleWireframeFlowPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_page",
		mcp.WithPromptDescription("Rearrange the children of a page into neat rows"),
		mcp.WithArgument("pageId",
			mcp.ArgumentDescription("Page to tidy"),
			mcp.RequiredArgument(),
		),
	), s.handleTidyPagePrompt)
}

func (s *Server) handleWireframeFlowPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	flow := req.Params.Arguments["flow"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Wireframe the flow: %s", flow),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Wireframe this user flow on the canvas: %s

Steps:
1. Call get_tree to see what already exists.
2. For every step of the flow, create_shape with type "page". New pages are placed clear of existing ones.
3. Fill each page with create_shape (pageId set) using button, inputField, text and navigation shapes.
4. Connect consecutive pages with create_path, start page first.
5. Check each connector with route_path; if a route looks wrong, drag_shape the pages apart and route again.

Remember: offsets are global; drag_shape takes page-local coordinates for children.`, flow),
				},
			},
		},
	}, nil
}

func (s *Server) handleTidyPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	pageID := req.Params.Arguments["pageId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Tidy page %s", pageID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Tidy page %s.

1. Call list_shapes with pageId=%s and note the page's own offset from get_tree.
2. Call arrange with the child IDs, origin 60 units inside the page's top-left corner and maxRowWidth just under the page width.
3. Use reorder with direction "front" on anything that should sit on top.
4. If the result is worse, call undo.`, pageID, pageID),
				},
			},
		},
	}, nil
}
