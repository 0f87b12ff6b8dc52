package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the interactive run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Drive a session interactively",
		Long: `Read session commands from stdin, one per line, against a single live
coordinator. The rest timer counts down in real time between commands.

Commands are the same as the CLI's: start, log, skip, skip-rest, complete,
reset, reset-exercise, unskip, status. "quit" or EOF exits.

Example:
  > start w1
  > log -w 100 -r 5
  > skip-rest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := newEnv(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()
			return runLoop(ctx, opts, e, cmd)
		},
	}
}

func runLoop(ctx context.Context, opts *RootOptions, e *env, cmd *cobra.Command) error {
	shared := *opts
	shared.shared = e

	out := cmd.OutOrStdout()
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprint(out, describeState(e.coord.State()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" || fields[0] == "exit" {
				return nil
			}

			sub := &cobra.Command{Use: "repflow", SilenceUsage: true, SilenceErrors: true}
			sub.AddCommand(sessionCommands(&shared)...)
			sub.SetArgs(fields)
			sub.SetIn(cmd.InOrStdin())
			sub.SetOut(out)
			sub.SetErr(cmd.ErrOrStderr())
			if err := sub.ExecuteContext(ctx); err != nil {
				fmt.Fprintln(out, "error:", err)
			}
		}
	}
}
