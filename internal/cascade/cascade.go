// Package cascade advances a member's training plan when a program runs out
// of workouts: the finished program is closed, the next one by start date is
// activated, and the plan is closed once no program remains.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/models"
)

// Store is the slice of the local store the cascade reads and writes.
// WorkoutsForProgram must return workouts with their deltas applied.
type Store interface {
	Plan(ctx context.Context, id string) (models.Plan, error)
	Program(ctx context.Context, id string) (models.Program, error)
	ProgramsForPlan(ctx context.Context, planID string) ([]models.Program, error)
	WorkoutsForProgram(ctx context.Context, programID string) ([]models.Workout, error)
	SavePlan(ctx context.Context, p models.Plan) error
	SaveProgram(ctx context.Context, p models.Program) error
}

// Result describes what a cascade pass changed.
type Result struct {
	ProgramID        string
	ProgramCompleted bool
	NextProgramID    string
	PlanID           string
	PlanCompleted    bool
}

// Cascade runs completion cascades.
type Cascade struct {
	store Store
	log   *slog.Logger
}

// New creates a Cascade.
func New(store Store, log *slog.Logger) *Cascade {
	return &Cascade{store: store, log: log}
}

// AfterWorkout checks w's program and advances the plan if every workout in
// the program is completed or skipped. A workout with no program, or a
// program that is already completed, is a no-op.
func (c *Cascade) AfterWorkout(ctx context.Context, w models.Workout) (Result, error) {
	res := Result{ProgramID: w.ProgramID}
	if w.ProgramID == "" {
		return res, nil
	}
	prog, err := c.store.Program(ctx, w.ProgramID)
	if errors.Is(err, localstore.ErrNotFound) {
		c.log.Debug("workout program not in local store", "workout_id", w.ID, "program_id", w.ProgramID)
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.PlanID = prog.PlanID
	if prog.Status == models.PhaseCompleted {
		return res, nil
	}

	workouts, err := c.store.WorkoutsForProgram(ctx, prog.ID)
	if err != nil {
		return res, err
	}
	if !exhausted(workouts) {
		return res, nil
	}

	prog.Status = models.PhaseCompleted
	if err := c.store.SaveProgram(ctx, prog); err != nil {
		return res, fmt.Errorf("completing program %s: %w", prog.ID, err)
	}
	res.ProgramCompleted = true
	c.log.Info("program completed", "program_id", prog.ID, "plan_id", prog.PlanID)

	if prog.PlanID == "" {
		return res, nil
	}
	next, err := c.nextProgram(ctx, prog)
	if err != nil {
		return res, err
	}
	if next != nil {
		next.Status = models.PhaseActive
		if err := c.store.SaveProgram(ctx, *next); err != nil {
			return res, fmt.Errorf("activating program %s: %w", next.ID, err)
		}
		res.NextProgramID = next.ID
		c.log.Info("program activated", "program_id", next.ID, "plan_id", prog.PlanID)
		return res, nil
	}

	plan, err := c.store.Plan(ctx, prog.PlanID)
	if errors.Is(err, localstore.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	plan.Status = models.PhaseCompleted
	if err := c.store.SavePlan(ctx, plan); err != nil {
		return res, fmt.Errorf("completing plan %s: %w", plan.ID, err)
	}
	res.PlanCompleted = true
	c.log.Info("plan completed", "plan_id", plan.ID)
	return res, nil
}

// nextProgram returns the first unfinished program that follows prog in
// start-date order.
func (c *Cascade) nextProgram(ctx context.Context, prog models.Program) (*models.Program, error) {
	programs, err := c.store.ProgramsForPlan(ctx, prog.PlanID)
	if err != nil {
		return nil, err
	}
	after := false
	for i := range programs {
		p := &programs[i]
		if p.ID == prog.ID {
			after = true
			continue
		}
		if after && p.Status != models.PhaseCompleted {
			return p, nil
		}
	}
	return nil, nil
}

func exhausted(workouts []models.Workout) bool {
	if len(workouts) == 0 {
		return false
	}
	for _, w := range workouts {
		if !w.Status.Finished() {
			return false
		}
	}
	return true
}
