// Package session owns the live workout session. The Coordinator is the
// single writer for session, workout, instance and set state: every
// mutation runs under its lock, is recorded as overlay deltas before the
// lock is released, and hands its side effects to an EffectRunner
// afterwards.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repflow/internal/cascade"
	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/overlay"
	"github.com/claude/repflow/internal/progression"
)

// Store is the local persistence the coordinator runs against.
type Store interface {
	overlay.Store
	Tree(ctx context.Context, workoutID string) (models.WorkoutTree, error)
	MergedTree(ctx context.Context, workoutID string) (models.WorkoutTree, error)
	SaveTree(ctx context.Context, t models.WorkoutTree) error
	InstanceByID(ctx context.Context, id string) (models.ExerciseInstance, error)
	SetByID(ctx context.Context, id string) (models.ExerciseSet, error)
	SaveInstances(ctx context.Context, ins ...models.ExerciseInstance) error
	SaveSets(ctx context.Context, sets ...models.ExerciseSet) error
	ActiveSession(ctx context.Context, memberID string) (*models.Session, error)
	SessionsForWorkout(ctx context.Context, workoutID string) ([]models.Session, error)
	SaveSession(ctx context.Context, s models.Session) error
	DeleteSession(ctx context.Context, id string) error
}

// Cascader runs the completion cascade for a finished workout.
type Cascader interface {
	AfterWorkout(ctx context.Context, w models.Workout) (cascade.Result, error)
}

// Config holds coordinator settings.
type Config struct {
	MemberID string
	Rules    progression.Rules
	// RestWarnings are the remaining-second counts that raise RestWarning.
	RestWarnings []int
	// Tick is the rest countdown step. One tick is one second of rest.
	Tick  time.Duration
	Clock func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCascade runs c after every completed or skipped workout.
func WithCascade(c Cascader) Option {
	return func(co *Coordinator) { co.cascade = c }
}

// LogInput is what the user performed for the current set.
type LogInput struct {
	Weight      *float64
	Reps        *int
	DurationSec *int
	Distance    *float64
}

// Result is the outcome of a coordinator mutation.
type Result struct {
	// Session is a copy of the session after the mutation; nil after reset.
	Session *models.Session
	Step    *progression.Step
	// AlreadyActive is set when a start was refused because a session runs.
	AlreadyActive bool
	// Finished is set when the mutation ended the workout; Status is then
	// completed or skipped.
	Finished bool
	Status   models.Status
	Effects  []Effect
}

// Coordinator drives a member's workout sessions.
type Coordinator struct {
	mu      sync.RWMutex
	cfg     Config
	store   Store
	runner  *EffectRunner
	cascade Cascader
	log     *slog.Logger

	session *models.Session
	tree    models.WorkoutTree
	layout  progression.Layout

	restCancel context.CancelFunc
	restDone   chan struct{}
	restGen    uint64
	restLeft   int
}

// New creates a coordinator. Zero config values fall back to the stock rest
// rules, a one second tick and the wall clock.
func New(cfg Config, store Store, runner *EffectRunner, log *slog.Logger, opts ...Option) *Coordinator {
	if cfg.Rules.StandaloneRest <= 0 {
		cfg.Rules.StandaloneRest = progression.DefaultStandaloneRest
	}
	if cfg.Rules.SupersetRest <= 0 {
		cfg.Rules.SupersetRest = progression.DefaultSupersetRest
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	c := &Coordinator{cfg: cfg, store: store, runner: runner, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartWorkout opens a session on the workout. With a session already
// active it logs a warning and returns that session with AlreadyActive set.
func (c *Coordinator) StartWorkout(ctx context.Context, workoutID string) (Result, error) {
	return c.mutate(func() (Result, error) { return c.startWorkout(ctx, workoutID) })
}

// LogSet records the current set and advances the cursor.
func (c *Coordinator) LogSet(ctx context.Context, in LogInput) (Result, error) {
	return c.mutate(func() (Result, error) { return c.logSet(ctx, in) })
}

// SkipExercise stamps the current exercise's open sets skipped and moves on.
// Inside a superset it leaves the whole group.
func (c *Coordinator) SkipExercise(ctx context.Context) (Result, error) {
	return c.mutate(func() (Result, error) { return c.skipExercise(ctx) })
}

// SkipRest ends the running rest countdown. It never moves the cursor and is
// a no-op when no rest runs.
func (c *Coordinator) SkipRest(ctx context.Context) (Result, error) {
	return c.mutate(func() (Result, error) { return c.skipRest(ctx) })
}

// CompleteWorkout ends the active session. The workout is completed if any
// set was performed and skipped otherwise.
func (c *Coordinator) CompleteWorkout(ctx context.Context) (Result, error) {
	return c.mutate(func() (Result, error) {
		if c.session == nil {
			return Result{}, ErrNoActiveSession
		}
		ended, status, effects, err := c.complete(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Session: &ended, Finished: true, Status: status, Effects: effects}, nil
	})
}

// ResetWorkout discards every delta recorded against the workout, deletes
// its active session and restores the base records to scheduled.
func (c *Coordinator) ResetWorkout(ctx context.Context, workoutID string) (Result, error) {
	return c.mutate(func() (Result, error) { return c.resetWorkout(ctx, workoutID) })
}

// ResetExerciseInstance restores one instance and its sets. It reports false
// when the instance does not exist.
func (c *Coordinator) ResetExerciseInstance(ctx context.Context, instanceID string) (bool, error) {
	var found bool
	_, err := c.mutate(func() (Result, error) {
		var res Result
		var err error
		found, res, err = c.resetInstance(ctx, instanceID)
		return res, err
	})
	return found, err
}

// UnskipSet returns a skipped set to pending. It reports false when the set
// does not exist or is not skipped.
func (c *Coordinator) UnskipSet(ctx context.Context, setID string) (bool, error) {
	var found bool
	_, err := c.mutate(func() (Result, error) {
		var res Result
		var err error
		found, res, err = c.unskipSet(ctx, setID)
		return res, err
	})
	return found, err
}

// Resume loads an active session left by an earlier process.
func (c *Coordinator) Resume(ctx context.Context) (Result, error) {
	return c.mutate(func() (Result, error) {
		if c.session != nil {
			return Result{Session: c.sessionCopy()}, nil
		}
		s, err := c.store.ActiveSession(ctx, c.cfg.MemberID)
		if err != nil {
			return Result{}, err
		}
		if s == nil {
			return Result{}, ErrNoActiveSession
		}
		if err := c.resume(ctx, *s); err != nil {
			return Result{}, err
		}
		return Result{Session: c.sessionCopy()}, nil
	})
}

// Close stops the rest countdown goroutine. The persisted session and its
// rest timer are left for Resume.
func (c *Coordinator) Close() {
	c.mu.Lock()
	done := c.restDone
	c.cancelTimer()
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// mutate runs fn under the writer lock and executes its effects after the
// lock is released.
func (c *Coordinator) mutate(fn func() (Result, error)) (Result, error) {
	c.mu.Lock()
	res, err := fn()
	c.mu.Unlock()
	if err != nil {
		return res, err
	}
	if c.runner != nil {
		c.runner.Run(res.Effects)
	}
	return res, nil
}

func (c *Coordinator) startWorkout(ctx context.Context, workoutID string) (Result, error) {
	if c.session == nil {
		existing, err := c.store.ActiveSession(ctx, c.cfg.MemberID)
		if err != nil {
			return Result{}, err
		}
		if existing != nil {
			if err := c.resume(ctx, *existing); err != nil {
				return Result{}, err
			}
		}
	}
	if c.session != nil {
		c.log.Warn("workout already active, ignoring start",
			"active_workout_id", c.session.WorkoutID, "workout_id", workoutID)
		return Result{Session: c.sessionCopy(), AlreadyActive: true}, nil
	}

	tree, err := c.loadTree(ctx, workoutID)
	if err != nil {
		return Result{}, err
	}
	if tree.Workout.Status.Finished() {
		return Result{}, fmt.Errorf("%w: %s is %s", ErrWorkoutFinished, workoutID, tree.Workout.Status)
	}

	now := c.now()
	layout := progression.FromTree(tree)
	start := progression.Start(layout)
	s := models.Session{
		ID:            uuid.Must(uuid.NewV7()).String(),
		MemberID:      c.cfg.MemberID,
		WorkoutID:     workoutID,
		ExerciseIndex: start.ExerciseIndex,
		SetIndex:      start.SetIndex,
		Status:        models.SessionActive,
		StartedAt:     now,
	}
	if err := c.write(ctx, &tree, overlay.WorkoutStatus(workoutID, models.StatusInProgress, nil)); err != nil {
		return Result{}, err
	}
	if err := c.store.SaveSession(ctx, s); err != nil {
		return Result{}, err
	}
	c.session, c.tree, c.layout = &s, tree, layout

	c.log.Info("workout started", "workout_id", workoutID, "session_id", s.ID)
	return Result{
		Session: c.sessionCopy(),
		Effects: []Effect{Notify{WorkoutStarted{WorkoutID: workoutID, SessionID: s.ID, At: start, Started: now}}},
	}, nil
}

func (c *Coordinator) logSet(ctx context.Context, in LogInput) (Result, error) {
	if c.session == nil {
		return Result{}, ErrNoActiveSession
	}
	at := c.cursor()
	set, err := c.currentSet(at)
	if err != nil {
		return Result{}, err
	}
	if err := in.validate(*set); err != nil {
		return Result{}, err
	}

	ex := c.layout.At(at.ExerciseIndex)
	logged := overlay.SetLogged(set.ID, overlay.Actuals{
		Weight:      in.Weight,
		Reps:        in.Reps,
		DurationSec: in.DurationSec,
		Distance:    in.Distance,
	}, c.now())
	if err := c.write(ctx, &c.tree, logged); err != nil {
		return Result{}, c.reload(ctx, err)
	}
	if err := c.syncInstance(ctx, &c.tree, ex.InstanceID); err != nil {
		return Result{}, c.reload(ctx, err)
	}
	// Rest ends only once the log is stored.
	c.stopRest()
	c.layout = progression.FromTree(c.tree)

	fresh, _ := c.tree.Set(set.ID)
	step := progression.Advance(c.layout, at, false, c.cfg.Rules)
	effects := []Effect{
		PushSet{Set: *fresh, WorkoutID: c.tree.Workout.ID, MemberID: c.cfg.MemberID},
		Notify{SetLogged{WorkoutID: c.tree.Workout.ID, Set: *fresh, Next: c.preview(step.Next)}},
	}
	return c.applyStep(ctx, at, step, false, effects)
}

func (c *Coordinator) skipExercise(ctx context.Context) (Result, error) {
	if c.session == nil {
		return Result{}, ErrNoActiveSession
	}
	at := c.cursor()
	ex := c.layout.At(at.ExerciseIndex)
	if ex.InstanceID == "" {
		return Result{}, fmt.Errorf("%w at position %d", ErrInstanceNotFound, at.ExerciseIndex)
	}

	var effects []Effect
	for i, id := range ex.SetIDs {
		if !ex.Pending(i) {
			continue
		}
		if err := c.write(ctx, &c.tree, overlay.SetSkipped(id)); err != nil {
			return Result{}, c.reload(ctx, err)
		}
		if s, ok := c.tree.Set(id); ok {
			effects = append(effects, PushSet{Set: *s, WorkoutID: c.tree.Workout.ID, MemberID: c.cfg.MemberID})
		}
	}
	if err := c.syncInstance(ctx, &c.tree, ex.InstanceID); err != nil {
		return Result{}, c.reload(ctx, err)
	}
	c.stopRest()
	c.layout = progression.FromTree(c.tree)

	step := progression.Advance(c.layout, at, true, c.cfg.Rules)
	return c.applyStep(ctx, at, step, true, effects)
}

// applyStep moves the cursor, stamps partner sets a skip abandoned, starts
// rest and completes the workout once the cursor runs off the end.
func (c *Coordinator) applyStep(ctx context.Context, from progression.Position, step progression.Step, skipped bool, effects []Effect) (Result, error) {
	for _, ref := range step.SkipSets {
		partner := c.layout.At(ref.Position)
		id := partner.SetIDs[ref.SetIndex]
		if err := c.write(ctx, &c.tree, overlay.SetSkipped(id)); err != nil {
			return Result{}, c.reload(ctx, err)
		}
		if err := c.syncInstance(ctx, &c.tree, partner.InstanceID); err != nil {
			return Result{}, c.reload(ctx, err)
		}
		if s, ok := c.tree.Set(id); ok {
			effects = append(effects, PushSet{Set: *s, WorkoutID: c.tree.Workout.ID, MemberID: c.cfg.MemberID})
		}
	}
	if len(step.SkipSets) > 0 {
		c.layout = progression.FromTree(c.tree)
	}

	wid := c.tree.Workout.ID
	c.session.ExerciseIndex, c.session.SetIndex = step.Next.ExerciseIndex, step.Next.SetIndex
	switch step.Transition {
	case progression.Rotate, progression.NextRound:
		effects = append(effects, Notify{SupersetRotation{
			WorkoutID: wid, From: from, To: step.Next, NewRound: step.Transition == progression.NextRound,
		}})
	case progression.NextExercise, progression.ExitGroup:
		effects = append(effects, Notify{ExerciseTransition{
			WorkoutID: wid, From: from.ExerciseIndex, To: step.Next.ExerciseIndex, Skipped: skipped,
		}})
	}

	if c.layout.Finished(step.Next) {
		ended, status, more, err := c.complete(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Session: &ended, Step: &step, Finished: true, Status: status, Effects: append(effects, more...)}, nil
	}

	if step.Resting() {
		c.beginRest(models.RestTimer{StartedAt: c.now(), Seconds: step.Rest, SetIndex: step.CompletedSetIndex}, step.Rest)
		effects = append(effects, Notify{RestStarted{WorkoutID: wid, Seconds: step.Rest, SetIndex: step.CompletedSetIndex}})
	}
	if err := c.store.SaveSession(ctx, *c.session); err != nil {
		return Result{}, c.reload(ctx, err)
	}
	return Result{Session: c.sessionCopy(), Step: &step, Effects: effects}, nil
}

// complete closes the session and stamps every open set and instance.
func (c *Coordinator) complete(ctx context.Context) (models.Session, models.Status, []Effect, error) {
	c.stopRest()
	now := c.now()
	status := models.StatusSkipped
	if c.tree.AnyCompleted() {
		status = models.StatusCompleted
	}

	for _, id := range pendingSetIDs(c.tree) {
		if err := c.write(ctx, &c.tree, overlay.SetSkipped(id)); err != nil {
			return models.Session{}, "", nil, c.reload(ctx, err)
		}
	}
	for _, in := range c.tree.Instances {
		if err := c.syncInstance(ctx, &c.tree, in.ID); err != nil {
			return models.Session{}, "", nil, c.reload(ctx, err)
		}
	}
	if err := c.write(ctx, &c.tree, overlay.WorkoutStatus(c.tree.Workout.ID, status, &now)); err != nil {
		return models.Session{}, "", nil, c.reload(ctx, err)
	}

	ended := *c.session
	ended.Status = models.SessionCompleted
	ended.EndedAt = &now
	ended.Rest = nil
	if err := c.store.SaveSession(ctx, ended); err != nil {
		return models.Session{}, "", nil, c.reload(ctx, err)
	}

	var done, skipped int
	for _, s := range c.tree.Sets {
		if s.Completion == models.CompletionCompleted {
			done++
		} else {
			skipped++
		}
	}
	wid := c.tree.Workout.ID
	effects := []Effect{PushWorkout{Snapshot: c.tree.Clone(), MemberID: c.cfg.MemberID}}
	if status == models.StatusCompleted {
		effects = append(effects, Calibrate{WorkoutID: wid, MemberID: c.cfg.MemberID})
	}
	effects = append(effects, Notify{WorkoutCompleted{WorkoutID: wid, Status: status, Completed: done, Skipped: skipped}})

	if c.cascade != nil {
		res, err := c.cascade.AfterWorkout(ctx, c.tree.Workout)
		switch {
		case err != nil:
			c.log.Error("completion cascade failed", "workout_id", wid, "error", err)
		case res.ProgramCompleted:
			effects = append(effects, Notify{PhaseAdvanced{
				ProgramID:     res.ProgramID,
				NextProgramID: res.NextProgramID,
				PlanID:        res.PlanID,
				PlanCompleted: res.PlanCompleted,
			}})
		}
	}

	c.log.Info("workout finished", "workout_id", wid, "status", status, "completed_sets", done)
	c.session, c.tree, c.layout = nil, models.WorkoutTree{}, progression.Layout{}
	return ended, status, effects, nil
}

func (c *Coordinator) skipRest(ctx context.Context) (Result, error) {
	if c.session == nil {
		return Result{}, ErrNoActiveSession
	}
	if c.session.Rest == nil {
		return Result{Session: c.sessionCopy()}, nil
	}
	left := c.restLeft
	c.stopRest()
	if err := c.store.SaveSession(ctx, *c.session); err != nil {
		return Result{}, err
	}
	return Result{
		Session: c.sessionCopy(),
		Effects: []Effect{Notify{RestSkipped{WorkoutID: c.session.WorkoutID, Remaining: left}}},
	}, nil
}

func (c *Coordinator) resetWorkout(ctx context.Context, workoutID string) (Result, error) {
	base, err := c.store.Tree(ctx, workoutID)
	if errors.Is(err, localstore.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: %s", ErrWorkoutNotFound, workoutID)
	}
	if err != nil {
		return Result{}, err
	}

	if c.session != nil && c.session.WorkoutID == workoutID {
		c.stopRest()
		c.session, c.tree, c.layout = nil, models.WorkoutTree{}, progression.Layout{}
	}
	sessions, err := c.store.SessionsForWorkout(ctx, workoutID)
	if err != nil {
		return Result{}, err
	}
	for _, s := range sessions {
		if !s.Active() {
			continue
		}
		if err := c.store.DeleteSession(ctx, s.ID); err != nil {
			return Result{}, err
		}
	}

	cleared, err := c.store.Clear(ctx, base.EntityIDs()...)
	if err != nil {
		return Result{}, err
	}
	restoreTree(&base)
	if err := c.store.SaveTree(ctx, base); err != nil {
		return Result{}, err
	}

	c.log.Info("workout reset", "workout_id", workoutID, "cleared_deltas", cleared)
	return Result{Effects: []Effect{
		PushWorkout{Snapshot: base.Clone(), MemberID: c.cfg.MemberID},
		Notify{WorkoutReset{WorkoutID: workoutID, ClearedDeltas: cleared}},
	}}, nil
}

func (c *Coordinator) resetInstance(ctx context.Context, instanceID string) (bool, Result, error) {
	inst, err := c.store.InstanceByID(ctx, instanceID)
	if errors.Is(err, localstore.ErrNotFound) {
		return false, Result{}, nil
	}
	if err != nil {
		return false, Result{}, err
	}

	if _, err := c.store.Clear(ctx, append([]string{inst.ID}, inst.SetIDs...)...); err != nil {
		return false, Result{}, err
	}
	var sets []models.ExerciseSet
	for _, id := range inst.SetIDs {
		s, err := c.store.SetByID(ctx, id)
		if errors.Is(err, localstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, Result{}, err
		}
		restoreSet(&s)
		sets = append(sets, s)
	}
	inst.Status = models.StatusScheduled
	if err := c.store.SaveInstances(ctx, inst); err != nil {
		return false, Result{}, err
	}
	if err := c.store.SaveSets(ctx, sets...); err != nil {
		return false, Result{}, err
	}

	tree, err := c.loadTree(ctx, inst.WorkoutID)
	if err != nil {
		return false, Result{}, err
	}
	if c.activeOn(inst.WorkoutID) {
		c.tree = tree
		if err := c.refreshCursor(ctx); err != nil {
			return false, Result{}, err
		}
	}
	c.log.Info("exercise instance reset", "instance_id", instanceID, "workout_id", inst.WorkoutID)
	return true, Result{
		Session: c.sessionCopy(),
		Effects: []Effect{PushWorkout{Snapshot: tree.Clone(), MemberID: c.cfg.MemberID}},
	}, nil
}

func (c *Coordinator) unskipSet(ctx context.Context, setID string) (bool, Result, error) {
	base, err := c.store.SetByID(ctx, setID)
	if errors.Is(err, localstore.ErrNotFound) {
		return false, Result{}, nil
	}
	if err != nil {
		return false, Result{}, err
	}
	inst, err := c.store.InstanceByID(ctx, base.InstanceID)
	if errors.Is(err, localstore.ErrNotFound) {
		return false, Result{}, nil
	}
	if err != nil {
		return false, Result{}, err
	}

	live := c.activeOn(inst.WorkoutID)
	tree := &c.tree
	if !live {
		loaded, err := c.loadTree(ctx, inst.WorkoutID)
		if err != nil {
			return false, Result{}, err
		}
		tree = &loaded
	}
	if s, ok := tree.Set(setID); !ok || s.Completion != models.CompletionSkipped {
		return false, Result{}, nil
	}

	if err := c.write(ctx, tree, overlay.SetPending(setID)); err != nil {
		return false, Result{}, c.reload(ctx, err)
	}
	if err := c.syncInstance(ctx, tree, inst.ID); err != nil {
		return false, Result{}, c.reload(ctx, err)
	}
	if live {
		if err := c.refreshCursor(ctx); err != nil {
			return false, Result{}, err
		}
	}
	s, _ := tree.Set(setID)
	return true, Result{
		Session: c.sessionCopy(),
		Effects: []Effect{PushSet{Set: *s, WorkoutID: inst.WorkoutID, MemberID: c.cfg.MemberID}},
	}, nil
}

// resume adopts a persisted session, restarting its rest countdown if the
// rest has not yet run out.
func (c *Coordinator) resume(ctx context.Context, s models.Session) error {
	tree, err := c.loadTree(ctx, s.WorkoutID)
	if err != nil {
		return err
	}
	c.session, c.tree, c.layout = &s, tree, progression.FromTree(tree)
	if s.Rest != nil {
		left := int(math.Ceil(s.Rest.EndsAt().Sub(c.now()).Seconds()))
		if left > 0 {
			c.beginRest(*s.Rest, left)
		} else {
			c.session.Rest = nil
			if err := c.store.SaveSession(ctx, *c.session); err != nil {
				return err
			}
		}
	}
	c.log.Info("session resumed", "workout_id", s.WorkoutID, "session_id", s.ID)
	return nil
}

// refreshCursor rebuilds the layout after an out-of-band edit and moves the
// cursor to the earliest open set if it no longer points at one.
func (c *Coordinator) refreshCursor(ctx context.Context) error {
	c.layout = progression.FromTree(c.tree)
	at := c.cursor()
	if c.layout.At(at.ExerciseIndex).Pending(at.SetIndex) {
		return nil
	}
	next := progression.Start(c.layout)
	if c.layout.Finished(next) {
		return nil
	}
	c.session.ExerciseIndex, c.session.SetIndex = next.ExerciseIndex, next.SetIndex
	return c.store.SaveSession(ctx, *c.session)
}

// write saves deltas stamped with the coordinator clock and folds each into
// t so later reads see it.
func (c *Coordinator) write(ctx context.Context, t *models.WorkoutTree, deltas ...overlay.Delta) error {
	for _, d := range deltas {
		saved, err := c.store.Save(ctx, d.StampedAt(c.now()))
		if err != nil {
			return fmt.Errorf("saving %s delta for %s: %w", d.Kind, d.EntityID, err)
		}
		if err := patch(t, saved); err != nil {
			return err
		}
	}
	return nil
}

// syncInstance writes an instance status delta when its sets imply a
// different status.
func (c *Coordinator) syncInstance(ctx context.Context, t *models.WorkoutTree, instanceID string) error {
	in, ok := t.Instance(instanceID)
	if !ok {
		return nil
	}
	want := instanceStatus(t.SetsOf(*in))
	if in.Status == want {
		return nil
	}
	return c.write(ctx, t, overlay.InstanceStatus(instanceID, want))
}

// reload reloads the in-memory tree after a failed write so it again
// matches what reached the store.
func (c *Coordinator) reload(ctx context.Context, cause error) error {
	if c.session == nil {
		return cause
	}
	tree, err := c.loadTree(ctx, c.session.WorkoutID)
	if err != nil {
		c.log.Error("reloading workout after failed write", "workout_id", c.session.WorkoutID, "error", err)
		return cause
	}
	c.tree, c.layout = tree, progression.FromTree(tree)
	return cause
}

func (c *Coordinator) loadTree(ctx context.Context, workoutID string) (models.WorkoutTree, error) {
	tree, err := c.store.MergedTree(ctx, workoutID)
	if errors.Is(err, localstore.ErrNotFound) {
		return tree, fmt.Errorf("%w: %s", ErrWorkoutNotFound, workoutID)
	}
	return tree, err
}

func (c *Coordinator) currentSet(at progression.Position) (*models.ExerciseSet, error) {
	ex := c.layout.At(at.ExerciseIndex)
	if ex.InstanceID == "" {
		return nil, fmt.Errorf("%w at position %d", ErrInstanceNotFound, at.ExerciseIndex)
	}
	if at.SetIndex < 0 || at.SetIndex >= len(ex.SetIDs) {
		return nil, fmt.Errorf("%w: index %d of %s", ErrSetNotFound, at.SetIndex, ex.InstanceID)
	}
	s, ok := c.tree.Set(ex.SetIDs[at.SetIndex])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSetNotFound, ex.SetIDs[at.SetIndex])
	}
	return s, nil
}

func (c *Coordinator) preview(p progression.Position) *SetPreview {
	if c.layout.Finished(p) {
		return nil
	}
	ex := c.layout.At(p.ExerciseIndex)
	if p.SetIndex >= len(ex.SetIDs) {
		return nil
	}
	s, ok := c.tree.Set(ex.SetIDs[p.SetIndex])
	if !ok {
		return nil
	}
	return &SetPreview{
		ExerciseID:        ex.ExerciseID,
		SetID:             s.ID,
		SetIndex:          p.SetIndex,
		TargetWeight:      s.TargetWeight,
		TargetReps:        s.TargetReps,
		TargetDurationSec: s.TargetDurationSec,
	}
}

func (c *Coordinator) activeOn(workoutID string) bool {
	return c.session != nil && c.session.WorkoutID == workoutID
}

func (c *Coordinator) cursor() progression.Position {
	return progression.Position{ExerciseIndex: c.session.ExerciseIndex, SetIndex: c.session.SetIndex}
}

func (c *Coordinator) sessionCopy() *models.Session {
	if c.session == nil {
		return nil
	}
	s := *c.session
	if s.Rest != nil {
		r := *s.Rest
		s.Rest = &r
	}
	return &s
}

func (c *Coordinator) now() time.Time {
	return c.cfg.Clock().UTC()
}

func (in LogInput) validate(set models.ExerciseSet) error {
	if set.IsCardio() {
		if in.DurationSec == nil || *in.DurationSec <= 0 {
			return &ValidationError{Field: "duration", Value: deref(in.DurationSec), Reason: "must be positive"}
		}
		if in.Distance != nil && (*in.Distance < 0 || math.IsNaN(*in.Distance)) {
			return &ValidationError{Field: "distance", Value: *in.Distance, Reason: "must not be negative"}
		}
		return nil
	}
	if in.Weight != nil && (*in.Weight < 0 || math.IsNaN(*in.Weight) || math.IsInf(*in.Weight, 0)) {
		return &ValidationError{Field: "weight", Value: *in.Weight, Reason: "must not be negative"}
	}
	if in.Reps == nil || *in.Reps <= 0 {
		return &ValidationError{Field: "reps", Value: deref(in.Reps), Reason: "must be positive"}
	}
	return nil
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// instanceStatus derives an instance's status from its sets.
func instanceStatus(sets []*models.ExerciseSet) models.Status {
	var pending, completed int
	for _, s := range sets {
		switch {
		case s.Pending():
			pending++
		case s.Completion == models.CompletionCompleted:
			completed++
		}
	}
	finished := len(sets) - pending
	switch {
	case pending == 0 && completed > 0:
		return models.StatusCompleted
	case pending == 0:
		return models.StatusSkipped
	case finished > 0:
		return models.StatusInProgress
	default:
		return models.StatusScheduled
	}
}

func pendingSetIDs(t models.WorkoutTree) []string {
	var ids []string
	for _, s := range t.Sets {
		if s.Pending() {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// patch folds one stored delta into the matching entity of t.
func patch(t *models.WorkoutTree, d overlay.Delta) error {
	one := []overlay.Delta{d}
	switch d.Kind {
	case overlay.KindWorkout:
		if t.Workout.ID != d.EntityID {
			return nil
		}
		w, err := overlay.MergeWorkout(t.Workout, one)
		if err != nil {
			return err
		}
		t.Workout = w
	case overlay.KindInstance:
		in, ok := t.Instance(d.EntityID)
		if !ok {
			return nil
		}
		merged, err := overlay.MergeInstance(*in, one)
		if err != nil {
			return err
		}
		*in = merged
	case overlay.KindSet:
		s, ok := t.Set(d.EntityID)
		if !ok {
			return nil
		}
		merged, err := overlay.MergeSet(*s, one)
		if err != nil {
			return err
		}
		*s = merged
	}
	return nil
}

func restoreTree(t *models.WorkoutTree) {
	t.Workout.Status = models.StatusScheduled
	t.Workout.CompletedDate = nil
	for i := range t.Instances {
		t.Instances[i].Status = models.StatusScheduled
	}
	for i := range t.Sets {
		restoreSet(&t.Sets[i])
	}
}

func restoreSet(s *models.ExerciseSet) {
	s.Completion = models.CompletionPending
	s.ClearActuals()
}
