package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/overlay"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "local.db"), WithClock(func() time.Time { return t0 }))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testTree() models.WorkoutTree {
	w, r := 100.0, 5
	return models.WorkoutTree{
		Workout: models.Workout{
			ID:          "w1",
			ProgramID:   "p1",
			ExerciseIDs: []string{"squat", "bench"},
			Status:      models.StatusScheduled,
		},
		Instances: []models.ExerciseInstance{
			{ID: "w1_ex2", WorkoutID: "w1", ExerciseID: "bench", OrderIndex: 1, SetIDs: []string{"w1_ex2_s1"}, Status: models.StatusScheduled},
			{ID: "w1_ex1", WorkoutID: "w1", ExerciseID: "squat", OrderIndex: 0, SetIDs: []string{"w1_ex1_s1", "w1_ex1_s2"}, Status: models.StatusScheduled},
		},
		Sets: []models.ExerciseSet{
			{ID: "w1_ex1_s1", InstanceID: "w1_ex1", SetNumber: 1, TargetWeight: &w, TargetReps: &r, Completion: models.CompletionPending},
			{ID: "w1_ex1_s2", InstanceID: "w1_ex1", SetNumber: 2, TargetWeight: &w, TargetReps: &r, Completion: models.CompletionPending},
			{ID: "w1_ex2_s1", InstanceID: "w1_ex2", SetNumber: 1, TargetWeight: &w, TargetReps: &r, Completion: models.CompletionPending},
		},
	}
}

func TestOpen_AppliesSchemaTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestTree_RoundTripOrdersInstances(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	require.NoError(t, db.SaveTree(ctx, testTree()))

	got, err := db.Tree(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got.Instances, 2)
	assert.Equal(t, "w1_ex1", got.Instances[0].ID)
	assert.Equal(t, "w1_ex2", got.Instances[1].ID)
	assert.Len(t, got.Sets, 3)
	assert.Equal(t, []string{"squat", "bench"}, got.Workout.ExerciseIDs)
}

func TestTree_MissingWorkout(t *testing.T) {
	db := openTest(t)
	_, err := db.Tree(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeltas_SaveStampsAndOrders(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	first, err := db.Save(ctx, overlay.WorkoutStatus("w1", models.StatusInProgress, nil))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.True(t, first.At.Equal(t0))

	later := t0.Add(time.Minute)
	second, err := db.Save(ctx, overlay.WorkoutStatus("w1", models.StatusCompleted, &later).StampedAt(later))
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)

	got, err := db.Deltas(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.True(t, got[1].At.Equal(later))
	assert.Equal(t, overlay.KindWorkout, got[1].Kind)
}

func TestDeltas_ReplaceByIDTakesNewSeq(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	d := overlay.InstanceStatus("i1", models.StatusInProgress)
	d.ID = "fixed"
	first, err := db.Save(ctx, d)
	require.NoError(t, err)
	_, err = db.Save(ctx, overlay.InstanceStatus("i1", models.StatusSkipped))
	require.NoError(t, err)

	d = overlay.InstanceStatus("i1", models.StatusCompleted)
	d.ID = "fixed"
	replaced, err := db.Save(ctx, d)
	require.NoError(t, err)
	assert.Greater(t, replaced.Seq, first.Seq)

	got, err := db.Deltas(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "fixed", got[1].ID)
}

func TestMergedTree_AppliesOverlay(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	require.NoError(t, db.SaveTree(ctx, testTree()))

	weight, reps := 102.5, 5
	_, err := db.Save(ctx, overlay.SetLogged("w1_ex1_s1", overlay.Actuals{Weight: &weight, Reps: &reps}, t0))
	require.NoError(t, err)
	_, err = db.Save(ctx, overlay.WorkoutStatus("w1", models.StatusInProgress, nil))
	require.NoError(t, err)

	merged, err := db.MergedTree(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, merged.Workout.Status)
	s, ok := merged.Set("w1_ex1_s1")
	require.True(t, ok)
	assert.Equal(t, models.CompletionCompleted, s.Completion)
	require.NotNil(t, s.ActualWeight)
	assert.Equal(t, 102.5, *s.ActualWeight)

	base, err := db.Tree(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, base.Workout.Status, "base rows stay untouched")
}

func TestClear_RemovesOnlyNamedEntities(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	for _, id := range []string{"a", "a", "b"} {
		_, err := db.Save(ctx, overlay.SetSkipped(id))
		require.NoError(t, err)
	}

	n, err := db.Clear(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	has, err := db.HasDeltas(ctx, "a")
	require.NoError(t, err)
	assert.False(t, has)
	has, err = db.HasDeltas(ctx, "b")
	require.NoError(t, err)
	assert.True(t, has)

	n, err = db.Clear(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessions_SingleActivePerMember(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	none, err := db.ActiveSession(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, none)

	s := models.Session{ID: "s1", MemberID: "m1", WorkoutID: "w1", Status: models.SessionActive, StartedAt: t0}
	require.NoError(t, db.SaveSession(ctx, s))
	second := models.Session{ID: "s2", MemberID: "m1", WorkoutID: "w2", Status: models.SessionActive, StartedAt: t0}
	assert.Error(t, db.SaveSession(ctx, second), "second active session must be rejected")

	got, err := db.ActiveSession(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.ID)

	s.Status = models.SessionCompleted
	require.NoError(t, db.SaveSession(ctx, s))
	require.NoError(t, db.SaveSession(ctx, second))

	require.NoError(t, db.DeleteSession(ctx, "s2"))
	require.NoError(t, db.DeleteSession(ctx, "s2"))
	got, err = db.ActiveSession(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, got)

	ss, err := db.SessionsForWorkout(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, ss, 1)
	assert.Equal(t, models.SessionCompleted, ss[0].Status)
}

func TestProgramsForPlan_OrderedByStart(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	require.NoError(t, db.SavePlan(ctx, models.Plan{ID: "plan", MemberID: "m1", Status: models.PhaseActive}))
	require.NoError(t, db.SaveProgram(ctx, models.Program{ID: "late", PlanID: "plan", StartDate: t0.AddDate(0, 1, 0)}))
	require.NoError(t, db.SaveProgram(ctx, models.Program{ID: "early", PlanID: "plan", StartDate: t0}))
	require.NoError(t, db.SaveProgram(ctx, models.Program{ID: "other", PlanID: "x", StartDate: t0}))

	ps, err := db.ProgramsForPlan(ctx, "plan")
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "early", ps[0].ID)
	assert.Equal(t, "late", ps[1].ID)

	p, err := db.Plan(ctx, "plan")
	require.NoError(t, err)
	assert.Equal(t, "m1", p.MemberID)
}
