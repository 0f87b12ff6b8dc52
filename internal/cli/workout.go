package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/session"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Weight   float64
	Reps     int
	Duration int
	Distance float64
}

// NewStartCommand creates the start command.
func NewStartCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <workout-id>",
		Short: "Start a workout session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, cmd, func(e *env) error {
				res, err := e.coord.StartWorkout(cmd.Context(), args[0])
				if err != nil {
					return opError("start failed", err)
				}
				msg := ""
				if res.AlreadyActive {
					msg = fmt.Sprintf("Workout %s is already running; finish or reset it first.", res.Session.WorkoutID)
				}
				return e.out.Done(msg, e.coord.State())
			})
		},
	}
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log the current set",
		Long: `Log the current set and advance. Strength sets take --weight and --reps;
cardio sets take --duration (seconds) and optionally --distance.

Example:
  repflow log --weight 100 --reps 5
  repflow log --duration 1200 --distance 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in session.LogInput
			flags := cmd.Flags()
			if flags.Changed("weight") {
				in.Weight = &opts.Weight
			}
			if flags.Changed("reps") {
				in.Reps = &opts.Reps
			}
			if flags.Changed("duration") {
				in.DurationSec = &opts.Duration
			}
			if flags.Changed("distance") {
				in.Distance = &opts.Distance
			}
			return withEnv(rootOpts, cmd, func(e *env) error {
				if _, err := e.coord.LogSet(cmd.Context(), in); err != nil {
					return opError("log failed", err)
				}
				return e.out.Done("", e.coord.State())
			})
		},
	}

	cmd.Flags().Float64VarP(&opts.Weight, "weight", "w", 0, "weight lifted")
	cmd.Flags().IntVarP(&opts.Reps, "reps", "r", 0, "repetitions performed")
	cmd.Flags().IntVarP(&opts.Duration, "duration", "d", 0, "duration in seconds (cardio)")
	cmd.Flags().Float64Var(&opts.Distance, "distance", 0, "distance (cardio)")

	return cmd
}

// NewSkipCommand creates the skip command.
func NewSkipCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Skip the rest of the current exercise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, cmd, func(e *env) error {
				if _, err := e.coord.SkipExercise(cmd.Context()); err != nil {
					return opError("skip failed", err)
				}
				return e.out.Done("", e.coord.State())
			})
		},
	}
}

// NewSkipRestCommand creates the skip-rest command.
func NewSkipRestCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "skip-rest",
		Short: "End the running rest timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, cmd, func(e *env) error {
				if _, err := e.coord.SkipRest(cmd.Context()); err != nil {
					return opError("skip-rest failed", err)
				}
				return e.out.Done("", e.coord.State())
			})
		},
	}
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Finish the active workout",
		Long:  "Finish the active workout. Sets not yet logged are marked skipped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, cmd, func(e *env) error {
				res, err := e.coord.CompleteWorkout(cmd.Context())
				if err != nil {
					return opError("complete failed", err)
				}
				return e.out.Done("", res.Session)
			})
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <workout-id>",
		Short: "Discard all progress on a workout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, cmd, func(e *env) error {
				if _, err := e.coord.ResetWorkout(cmd.Context(), args[0]); err != nil {
					return opError("reset failed", err)
				}
				return e.out.Done("", nil)
			})
		},
	}
}

// NewResetExerciseCommand creates the reset-exercise command.
func NewResetExerciseCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-exercise <instance-id>",
		Short: "Make every set of one exercise pending again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, cmd, func(e *env) error {
				found, err := e.coord.ResetExerciseInstance(cmd.Context(), args[0])
				if err != nil {
					return opError("reset-exercise failed", err)
				}
				msg := "Exercise reset."
				if !found {
					msg = "No such exercise; nothing reset."
				}
				return e.out.Done(msg, e.coord.State())
			})
		},
	}
}

// NewUnskipCommand creates the unskip command.
func NewUnskipCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unskip <set-id>",
		Short: "Make a skipped set pending again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, cmd, func(e *env) error {
				found, err := e.coord.UnskipSet(cmd.Context(), args[0])
				if err != nil {
					return opError("unskip failed", err)
				}
				msg := "Set is pending again."
				if !found {
					msg = "No skipped set with that id; nothing changed."
				}
				return e.out.Done(msg, e.coord.State())
			})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, cmd, func(e *env) error {
				return e.out.Done("", e.coord.State())
			})
		},
	}
}

func withEnv(opts *RootOptions, cmd *cobra.Command, fn func(*env) error) error {
	e, release, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer release()
	return fn(e)
}

// opError classifies a coordinator error. Refusals the user can act on are
// ExitFailure; anything else is a command error.
func opError(message string, err error) error {
	switch {
	case session.IsValidation(err),
		errors.Is(err, session.ErrNoActiveSession),
		errors.Is(err, session.ErrWorkoutNotFound),
		errors.Is(err, session.ErrWorkoutFinished),
		errors.Is(err, session.ErrInstanceNotFound),
		errors.Is(err, session.ErrSetNotFound),
		errors.Is(err, localstore.ErrNotFound):
		return WrapExitError(ExitFailure, message, err)
	}
	return WrapExitError(ExitCommandError, message, err)
}
