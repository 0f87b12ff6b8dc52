package mcp

import (
	"context"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
)

// DataSource abstracts the local data the MCP tools read. The CLI wires it to
// a session coordinator plus the local store.
type DataSource interface {
	State() session.State
	MergedTree(ctx context.Context, workoutID string) (models.WorkoutTree, error)
	WorkoutsForProgram(ctx context.Context, programID string) ([]models.Workout, error)
}

// Remote reads the sync server's copy of a workout. *upload.Client
// satisfies it.
type Remote interface {
	FetchWorkout(ctx context.Context, workoutID string) (*models.StoredWorkout, error)
}
