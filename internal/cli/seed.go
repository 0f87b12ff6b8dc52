package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claude/repflow/internal/importer"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	DryRun    bool
	Overwrite bool
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <path>",
		Short: "Import plans, programs and workouts into the local store",
		Long: `Import a JSON dataset file, or every *.json / *.json.gz file in a directory.

Entities already in the local store are kept unless --overwrite is given.

Example:
  repflow seed ./block-1.json
  repflow seed --dry-run ./datasets`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				imp := importer.New(e.db, e.log, opts.DryRun, opts.Overwrite)
				stats, err := imp.Import(cmd.Context(), args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "seed failed", err)
				}
				msg := fmt.Sprintf("Imported %d plans, %d programs, %d workouts (%d sets); %d already stored.",
					stats.PlansImported, stats.ProgramsImported, stats.WorkoutsImported,
					stats.SetsImported, stats.EntitiesSkipped)
				if opts.DryRun {
					msg = "Dry run. " + msg
				}
				return e.out.Done(msg, stats)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "parse and validate without writing")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace entities already in the store")

	return cmd
}
