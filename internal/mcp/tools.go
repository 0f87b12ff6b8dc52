package mcp

import (
	"context"
	"errors"

	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/upload"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolGetSessionState = mcp.NewTool("get_session_state",
	mcp.WithDescription("Current session state: active workout, exercise and set cursor, the upcoming set's targets, and the rest countdown if resting."),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("A workout with its exercise instances and sets, including everything logged but not yet synced. Defaults to the active workout."),
	mcp.WithString("workout_id", mcp.Description("Workout ID. Defaults to the active session's workout.")),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("Workouts of a program with their current status."),
	mcp.WithString("program_id", mcp.Required(), mcp.Description("Program ID")),
)

var toolGetSyncedWorkout = mcp.NewTool("get_synced_workout",
	mcp.WithDescription("The sync server's copy of a workout, to compare against the local view."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout ID")),
)

// --- Tool handlers ---

func (h *handlers) getSessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(h.ds.State())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("workout_id", "")
	if id == "" {
		id = h.ds.State().WorkoutID
	}
	if id == "" {
		return mcp.NewToolResultError("no active workout; pass workout_id"), nil
	}

	tree, err := h.ds.MergedTree(ctx, id)
	if errors.Is(err, localstore.ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "workout_id", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(tree)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	programID, err := req.RequireString("program_id")
	if err != nil {
		return mcp.NewToolResultError("program_id parameter is required"), nil
	}
	workouts, err := h.ds.WorkoutsForProgram(ctx, programID)
	if err != nil {
		h.log.Error("mcp list_workouts", "program_id", programID, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSyncedWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}
	stored, err := h.remote.FetchWorkout(ctx, id)
	if errors.Is(err, upload.ErrNotFound) {
		return mcp.NewToolResultError("workout not synced yet: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_synced_workout", "workout_id", id, "error", err)
		return mcp.NewToolResultError("fetch failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(stored)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
