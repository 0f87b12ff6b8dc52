package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/claude/repflow/internal/models"
)

// Effect is a side effect a mutation asks for. Effects carry snapshots taken
// inside the writer, so running them never touches coordinator state.
type Effect interface {
	effect()
}

// PushSet sends one logged or skipped set to the remote store.
type PushSet struct {
	Set       models.ExerciseSet
	WorkoutID string
	MemberID  string
}

// PushWorkout sends a full workout subtree to the remote store.
type PushWorkout struct {
	Snapshot models.WorkoutTree
	MemberID string
}

// Calibrate asks the calibration collaborator to re-estimate maxes after a
// completed workout.
type Calibrate struct {
	WorkoutID string
	MemberID  string
}

// Notify publishes an event on the bus.
type Notify struct {
	Event Event
}

func (PushSet) effect()     {}
func (PushWorkout) effect() {}
func (Calibrate) effect()   {}
func (Notify) effect()      {}

// Pusher is the remote persistence collaborator. Calls are fallible and
// never retried.
type Pusher interface {
	SaveFullWorkout(ctx context.Context, tree models.WorkoutTree, memberID string) error
	SaveSet(ctx context.Context, set models.ExerciseSet, workoutID, memberID string) error
}

// Calibrator re-estimates one-rep maxes from a completed workout.
type Calibrator interface {
	Calibrate(ctx context.Context, workoutID, memberID string) error
}

// EffectRunner executes effects. Notify effects are published synchronously
// in order; remote effects run on background goroutines and only log their
// failures.
type EffectRunner struct {
	wg      conc.WaitGroup
	bus     *Bus
	pusher  Pusher
	cal     Calibrator
	timeout time.Duration
	log     *slog.Logger
}

// RunnerOption configures an EffectRunner.
type RunnerOption func(*EffectRunner)

// WithPusher sets the remote store. Without one, push effects are dropped.
func WithPusher(p Pusher) RunnerOption {
	return func(r *EffectRunner) { r.pusher = p }
}

// WithCalibrator sets the calibration collaborator.
func WithCalibrator(c Calibrator) RunnerOption {
	return func(r *EffectRunner) { r.cal = c }
}

// WithTimeout bounds each background call. The default is 30s.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *EffectRunner) { r.timeout = d }
}

// NewEffectRunner creates a runner publishing to bus.
func NewEffectRunner(bus *Bus, log *slog.Logger, opts ...RunnerOption) *EffectRunner {
	r := &EffectRunner{bus: bus, timeout: 30 * time.Second, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes effects in order and returns without waiting for background
// calls.
func (r *EffectRunner) Run(effects []Effect) {
	for _, e := range effects {
		switch e := e.(type) {
		case Notify:
			if r.bus != nil {
				r.bus.Publish(e.Event)
			}
		case PushSet:
			if r.pusher == nil {
				r.log.Debug("no remote configured, dropping set push", "set_id", e.Set.ID)
				continue
			}
			r.background("push set", func(ctx context.Context) error {
				return r.pusher.SaveSet(ctx, e.Set, e.WorkoutID, e.MemberID)
			}, "set_id", e.Set.ID, "workout_id", e.WorkoutID)
		case PushWorkout:
			if r.pusher == nil {
				r.log.Debug("no remote configured, dropping workout push", "workout_id", e.Snapshot.Workout.ID)
				continue
			}
			r.background("push workout", func(ctx context.Context) error {
				return r.pusher.SaveFullWorkout(ctx, e.Snapshot, e.MemberID)
			}, "workout_id", e.Snapshot.Workout.ID)
		case Calibrate:
			if r.cal == nil {
				continue
			}
			r.background("calibrate", func(ctx context.Context) error {
				return r.cal.Calibrate(ctx, e.WorkoutID, e.MemberID)
			}, "workout_id", e.WorkoutID)
		}
	}
}

// Wait blocks until every background call has returned.
func (r *EffectRunner) Wait() {
	r.wg.Wait()
}

func (r *EffectRunner) background(what string, fn func(context.Context) error, attrs ...any) {
	r.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		var err error
		if rec := panics.Try(func() { err = fn(ctx) }); rec != nil {
			err = rec.AsError()
		}
		if err != nil {
			r.log.Error(what+" failed", append(attrs, "error", err)...)
			return
		}
		r.log.Debug(what+" done", attrs...)
	})
}
