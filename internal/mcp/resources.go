package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) sessionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, h.ds.State())
}

func (h *handlers) activeWorkoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st := h.ds.State()
	if st.WorkoutID == "" {
		return jsonContents(req.Params.URI, map[string]any{"active": false})
	}
	tree, err := h.ds.MergedTree(ctx, st.WorkoutID)
	if err != nil {
		h.log.Warn("active_workout: tree query failed", "workout_id", st.WorkoutID, "error", err)
		return nil, err
	}
	return jsonContents(req.Params.URI, tree)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
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
