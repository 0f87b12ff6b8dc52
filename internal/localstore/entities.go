package localstore

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/overlay"
)

// SavePlan upserts a base plan record.
func (d *DB) SavePlan(ctx context.Context, p models.Plan) error {
	body, err := encode(p)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO plans (id, member_id, body) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET member_id = excluded.member_id, body = excluded.body`,
		p.ID, p.MemberID, body)
	if err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	return nil
}

// SaveProgram upserts a base program record.
func (d *DB) SaveProgram(ctx context.Context, p models.Program) error {
	body, err := encode(p)
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO programs (id, plan_id, start_date, body) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET plan_id = excluded.plan_id,
		 start_date = excluded.start_date, body = excluded.body`,
		p.ID, p.PlanID, p.StartDate.UTC().Format(time.RFC3339Nano), body)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	return nil
}

// Plan returns a base plan.
func (d *DB) Plan(ctx context.Context, id string) (models.Plan, error) {
	p, err := getBody[models.Plan](ctx, d.db, `SELECT body FROM plans WHERE id = ?`, id)
	if err != nil {
		return p, fmt.Errorf("querying plan %s: %w", id, err)
	}
	return p, nil
}

// Program returns a base program.
func (d *DB) Program(ctx context.Context, id string) (models.Program, error) {
	p, err := getBody[models.Program](ctx, d.db, `SELECT body FROM programs WHERE id = ?`, id)
	if err != nil {
		return p, fmt.Errorf("querying program %s: %w", id, err)
	}
	return p, nil
}

// ProgramsForPlan returns a plan's programs ordered by start date.
func (d *DB) ProgramsForPlan(ctx context.Context, planID string) ([]models.Program, error) {
	ps, err := listBodies[models.Program](ctx, d.db,
		`SELECT body FROM programs WHERE plan_id = ? ORDER BY start_date ASC, id ASC`, planID)
	if err != nil {
		return nil, fmt.Errorf("querying programs for plan %s: %w", planID, err)
	}
	return ps, nil
}

// Workout returns a base workout without overlay deltas.
func (d *DB) Workout(ctx context.Context, id string) (models.Workout, error) {
	w, err := getBody[models.Workout](ctx, d.db, `SELECT body FROM workouts WHERE id = ?`, id)
	if err != nil {
		return w, fmt.Errorf("querying workout %s: %w", id, err)
	}
	return w, nil
}

// WorkoutsForProgram returns a program's workouts merged with their deltas.
func (d *DB) WorkoutsForProgram(ctx context.Context, programID string) ([]models.Workout, error) {
	base, err := listBodies[models.Workout](ctx, d.db,
		`SELECT body FROM workouts WHERE program_id = ? ORDER BY id ASC`, programID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts for program %s: %w", programID, err)
	}
	ids := make([]string, len(base))
	for i, w := range base {
		ids[i] = w.ID
	}
	deltas, err := d.Deltas(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]models.Workout, len(base))
	for i, w := range base {
		if out[i], err = overlay.MergeWorkout(w, deltas); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SaveTree upserts a workout with all its instances and sets in one
// transaction. It writes base records only; deltas are untouched.
func (d *DB) SaveTree(ctx context.Context, t models.WorkoutTree) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving tree: begin: %w", err)
	}
	defer tx.Rollback()

	if err := saveWorkout(ctx, tx, t.Workout); err != nil {
		return err
	}
	for _, in := range t.Instances {
		if err := saveInstance(ctx, tx, in); err != nil {
			return err
		}
	}
	for _, s := range t.Sets {
		if err := saveSet(ctx, tx, s); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving tree: commit: %w", err)
	}
	return nil
}

// Tree returns the base workout, its instances ordered by position, and
// their sets.
func (d *DB) Tree(ctx context.Context, workoutID string) (models.WorkoutTree, error) {
	var t models.WorkoutTree
	w, err := d.Workout(ctx, workoutID)
	if err != nil {
		return t, err
	}
	t.Workout = w

	t.Instances, err = listBodies[models.ExerciseInstance](ctx, d.db,
		`SELECT body FROM instances WHERE workout_id = ? ORDER BY order_index ASC`, workoutID)
	if err != nil {
		return t, fmt.Errorf("querying instances for workout %s: %w", workoutID, err)
	}
	if len(t.Instances) == 0 {
		return t, nil
	}

	ids := make([]string, len(t.Instances))
	for i, in := range t.Instances {
		ids[i] = in.ID
	}
	t.Sets, err = listBodies[models.ExerciseSet](ctx, d.db,
		`SELECT body FROM sets WHERE instance_id IN (`+placeholders(len(ids))+`)
		 ORDER BY instance_id ASC, set_number ASC`, stringArgs(ids)...)
	if err != nil {
		return t, fmt.Errorf("querying sets for workout %s: %w", workoutID, err)
	}
	return t, nil
}

// MergedTree returns the workout tree with every overlay delta applied.
func (d *DB) MergedTree(ctx context.Context, workoutID string) (models.WorkoutTree, error) {
	base, err := d.Tree(ctx, workoutID)
	if err != nil {
		return base, err
	}
	deltas, err := d.Deltas(ctx, base.EntityIDs()...)
	if err != nil {
		return base, err
	}
	return overlay.MergeTree(base, deltas)
}

// InstanceByID returns a base instance.
func (d *DB) InstanceByID(ctx context.Context, id string) (models.ExerciseInstance, error) {
	in, err := getBody[models.ExerciseInstance](ctx, d.db, `SELECT body FROM instances WHERE id = ?`, id)
	if err != nil {
		return in, fmt.Errorf("querying instance %s: %w", id, err)
	}
	return in, nil
}

// SetByID returns a base set.
func (d *DB) SetByID(ctx context.Context, id string) (models.ExerciseSet, error) {
	s, err := getBody[models.ExerciseSet](ctx, d.db, `SELECT body FROM sets WHERE id = ?`, id)
	if err != nil {
		return s, fmt.Errorf("querying set %s: %w", id, err)
	}
	return s, nil
}

func saveWorkout(ctx context.Context, ex execer, w models.Workout) error {
	body, err := encode(w)
	if err != nil {
		return fmt.Errorf("encoding workout: %w", err)
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO workouts (id, program_id, body) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET program_id = excluded.program_id, body = excluded.body`,
		w.ID, w.ProgramID, body)
	if err != nil {
		return fmt.Errorf("saving workout %s: %w", w.ID, err)
	}
	return nil
}

func saveInstance(ctx context.Context, ex execer, in models.ExerciseInstance) error {
	body, err := encode(in)
	if err != nil {
		return fmt.Errorf("encoding instance: %w", err)
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO instances (id, workout_id, order_index, body) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET workout_id = excluded.workout_id,
		 order_index = excluded.order_index, body = excluded.body`,
		in.ID, in.WorkoutID, in.OrderIndex, body)
	if err != nil {
		return fmt.Errorf("saving instance %s: %w", in.ID, err)
	}
	return nil
}

func saveSet(ctx context.Context, ex execer, s models.ExerciseSet) error {
	body, err := encode(s)
	if err != nil {
		return fmt.Errorf("encoding set: %w", err)
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO sets (id, instance_id, set_number, body) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET instance_id = excluded.instance_id,
		 set_number = excluded.set_number, body = excluded.body`,
		s.ID, s.InstanceID, s.SetNumber, body)
	if err != nil {
		return fmt.Errorf("saving set %s: %w", s.ID, err)
	}
	return nil
}

// SaveInstances upserts base instance records.
func (d *DB) SaveInstances(ctx context.Context, ins ...models.ExerciseInstance) error {
	for _, in := range ins {
		if err := saveInstance(ctx, d.db, in); err != nil {
			return err
		}
	}
	return nil
}

// SaveSets upserts base set records.
func (d *DB) SaveSets(ctx context.Context, sets ...models.ExerciseSet) error {
	for _, s := range sets {
		if err := saveSet(ctx, d.db, s); err != nil {
			return err
		}
	}
	return nil
}
