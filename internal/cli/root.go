// Package cli is the repflow command tree: seeding the local store, driving
// a workout session one command at a time or interactively, and serving the
// session over MCP.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	version string
	// shared is set by the interactive loop so every command reuses one
	// coordinator and its running rest timer.
	shared *env
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the repflow CLI.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{version: version}

	cmd := &cobra.Command{
		Use:           "repflow",
		Short:         "repflow - workout session engine",
		Long:          "Run planned workouts set by set: rest timers, superset rotation, and sync to a remote store.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath(), "path to client config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(sessionCommands(opts)...)
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewMCPCommand(opts))

	return cmd
}

// sessionCommands are the commands that drive a session. The interactive
// loop dispatches its input lines to the same set.
func sessionCommands(opts *RootOptions) []*cobra.Command {
	return []*cobra.Command{
		NewStartCommand(opts),
		NewLogCommand(opts),
		NewSkipCommand(opts),
		NewSkipRestCommand(opts),
		NewCompleteCommand(opts),
		NewResetCommand(opts),
		NewResetExerciseCommand(opts),
		NewUnskipCommand(opts),
		NewStatusCommand(opts),
	}
}
