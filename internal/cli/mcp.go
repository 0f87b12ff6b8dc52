package cli

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/claude/repflow/internal/localstore"
	repmcp "github.com/claude/repflow/internal/mcp"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
)

// localSource serves MCP reads from the coordinator and the local store.
type localSource struct {
	coord *session.Coordinator
	db    *localstore.DB
}

func (s localSource) State() session.State { return s.coord.State() }

func (s localSource) MergedTree(ctx context.Context, workoutID string) (models.WorkoutTree, error) {
	return s.db.MergedTree(ctx, workoutID)
}

func (s localSource) WorkoutsForProgram(ctx context.Context, programID string) ([]models.Workout, error) {
	return s.db.WorkoutsForProgram(ctx, programID)
}

// NewMCPCommand creates the mcp command.
func NewMCPCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the session over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, cmd, func(e *env) error {
				// stdout carries the protocol; rest events must not reach it.
				e.out.Reset(opts.Format, io.Discard)
				var remote repmcp.Remote
				if e.remote != nil {
					remote = e.remote
				}
				s := repmcp.New(localSource{coord: e.coord, db: e.db}, remote, opts.version, e.log)
				e.log.Info("mcp server starting", "transport", "stdio")
				return server.ServeStdio(s)
			})
		},
	}
}
