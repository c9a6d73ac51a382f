package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"canvas/internal/geometry"
	"canvas/internal/optimistic"
)

// settleTimeout bounds how long a tool waits for its mutations to reach the
// remote store before reporting them as still pending.
const settleTimeout = 30 * time.Second

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func getPoint(args map[string]any, xKey, yKey string) geometry.Point {
	return geometry.Point{X: getFloat(args, xKey, 0), Y: getFloat(args, yKey, 0)}
}

// splitIDs parses a comma-separated id list, skipping blanks.
func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func boolPtr(v bool) *bool { return &v }

// mutationReport is what a tool returns for one optimistic change.
type mutationReport struct {
	Kind    string `json:"kind"`
	State   string `json:"state"`
	Retries int    `json:"retries,omitempty"`
	Error   string `json:"error,omitempty"`
}

// settle waits for ms to finish (or settleTimeout) and reports each one.
// A mutation still in flight is reported with its current state.
func settle(ctx context.Context, ms ...*optimistic.Mutation) []mutationReport {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	out := make([]mutationReport, 0, len(ms))
	for _, m := range ms {
		if m == nil {
			continue
		}
		m.Wait(ctx)
		r := mutationReport{Kind: m.Kind, State: m.State().String(), Retries: m.Retries()}
		if err := m.Err(); err != nil {
			r.Error = err.Error()
		}
		out = append(out, r)
	}
	return out
}
