package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/claude/repflow/internal/cascade"
	"github.com/claude/repflow/internal/config"
	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/progression"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/upload"
)

// env is everything a command needs, wired from the client config.
type env struct {
	cfg    *config.ClientConfig
	log    *slog.Logger
	db     *localstore.DB
	bus    *session.Bus
	runner *session.EffectRunner
	coord  *session.Coordinator
	remote *upload.Client
	out    *Output
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".repflow", "config.yaml")
	}
	return "repflow.yaml"
}

// open returns the shared env inside the interactive loop, or a fresh one
// with the persisted session resumed. release must be called when done.
func (o *RootOptions) open(cmd *cobra.Command) (e *env, release func(), err error) {
	if o.shared != nil {
		o.shared.out.Reset(o.Format, cmd.OutOrStdout())
		return o.shared, func() {}, nil
	}

	e, err = newEnv(cmd.Context(), o, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return e, e.close, nil
}

func newEnv(ctx context.Context, o *RootOptions, stdout, stderr io.Writer) (*env, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadClient(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	db, err := localstore.Open(cfg.Local.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open local store", err)
	}

	e := &env{cfg: cfg, log: log, db: db, out: NewOutput(o.Format, stdout)}
	e.bus = session.NewBus(log)
	e.bus.SubscribeAll(e.out.Event)

	runnerOpts := []session.RunnerOption{session.WithTimeout(cfg.Remote.Timeout)}
	if cfg.Remote.URL != "" {
		e.remote = upload.NewClient(cfg.Remote.URL, cfg.Remote.APIKey, cfg.Remote.Timeout)
		runnerOpts = append(runnerOpts, session.WithPusher(e.remote))
	}
	e.runner = session.NewEffectRunner(e.bus, log, runnerOpts...)

	e.coord = session.New(session.Config{
		MemberID: cfg.MemberID,
		Rules: progression.Rules{
			StandaloneRest: cfg.Engine.StandaloneRestSeconds,
			SupersetRest:   cfg.Engine.SupersetRestSeconds,
		},
		RestWarnings: cfg.Engine.RestWarningSeconds,
		Tick:         cfg.Engine.Tick,
	}, db, e.runner, log, session.WithCascade(cascade.New(db, log)))

	if _, err := e.coord.Resume(ctx); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
		e.close()
		return nil, WrapExitError(ExitCommandError, "failed to resume session", err)
	}
	return e, nil
}

// close stops the rest countdown, waits for pending pushes and closes the
// store. The session and its rest timer stay persisted.
func (e *env) close() {
	e.coord.Close()
	e.runner.Wait()
	if err := e.db.Close(); err != nil {
		e.log.Error("error closing local store", "error", err)
	}
}
