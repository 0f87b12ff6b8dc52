package importer

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/models"
)

const seedJSON = `{
  "plans": [{"id": "plan1", "memberId": "me", "startDate": "2026-03-01T00:00:00Z", "endDate": "2026-04-01T00:00:00Z"}],
  "programs": [{"id": "prog1", "planId": "plan1", "startDate": "2026-03-01T00:00:00Z", "endDate": "2026-03-15T00:00:00Z"}],
  "workouts": [{"id": "w1", "programId": "prog1", "name": "Lower"}],
  "instances": [
    {"id": "i2", "workoutId": "w1", "exerciseId": "lunge", "orderIndex": 1},
    {"id": "i1", "workoutId": "w1", "exerciseId": "squat", "orderIndex": 0},
    {"id": "ix", "workoutId": "missing", "exerciseId": "curl"}
  ],
  "sets": [
    {"id": "s2", "exerciseInstanceId": "i1", "setNumber": 2, "targetReps": 5, "completion": "scheduled"},
    {"id": "s1", "exerciseInstanceId": "i1", "setNumber": 1, "targetReps": 5, "completion": "pending"},
    {"exerciseInstanceId": "i2", "setNumber": 1, "targetReps": 10},
    {"id": "so", "exerciseInstanceId": "nope", "setNumber": 1}
  ]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *localstore.DB {
	t.Helper()
	db, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// TestImportFile verifies a dataset is linked into a playable tree.
func TestImportFile(t *testing.T) {
	db := openStore(t)
	path := writeFile(t, t.TempDir(), "seed.json", seedJSON)

	stats, err := New(db, testLogger(), false, false).Import(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Equal(t, 1, stats.PlansImported)
	assert.Equal(t, 1, stats.ProgramsImported)
	assert.Equal(t, 1, stats.WorkoutsImported)
	assert.Equal(t, 2, stats.InstancesImported)
	assert.Equal(t, 3, stats.SetsImported)
	assert.Equal(t, 2, stats.SetsNormalized)
	assert.Equal(t, 1, stats.OrphanedInstances)
	assert.Equal(t, 1, stats.OrphanedSets)

	tree, err := db.Tree(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, tree.Workout.Status)
	assert.Equal(t, []string{"squat", "lunge"}, tree.Workout.ExerciseIDs)
	require.Len(t, tree.Instances, 2)
	assert.Equal(t, []string{"s1", "s2"}, tree.Instances[0].SetIDs)
	require.Len(t, tree.Instances[1].SetIDs, 1)
	assert.NotEmpty(t, tree.Instances[1].SetIDs[0])

	for _, s := range tree.Sets {
		assert.Equal(t, models.CompletionPending, s.Completion, "set %s", s.ID)
	}

	plan, err := db.Plan(context.Background(), "plan1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseScheduled, plan.Status)
}

// TestImportSkipsExisting verifies stored entities are left alone unless
// overwrite is set.
func TestImportSkipsExisting(t *testing.T) {
	db := openStore(t)
	path := writeFile(t, t.TempDir(), "seed.json", seedJSON)
	ctx := context.Background()

	_, err := New(db, testLogger(), false, false).Import(ctx, path)
	require.NoError(t, err)

	stats, err := New(db, testLogger(), false, false).Import(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.WorkoutsImported)
	assert.Equal(t, 0, stats.PlansImported)
	assert.Equal(t, 3, stats.EntitiesSkipped)

	stats, err = New(db, testLogger(), false, true).Import(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.WorkoutsImported)
	assert.Equal(t, 1, stats.ProgramsImported)
}

// TestImportDryRun verifies nothing is written in dry-run mode.
func TestImportDryRun(t *testing.T) {
	db := openStore(t)
	path := writeFile(t, t.TempDir(), "seed.json", seedJSON)

	stats, err := New(db, testLogger(), true, false).Import(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.WorkoutsImported)

	_, err = db.Workout(context.Background(), "w1")
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

// TestImportDirectory verifies directories are walked in name order, gzip
// files are read, and a broken file does not stop the rest.
func TestImportDirectory(t *testing.T) {
	db := openStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.json", seedJSON)
	writeFile(t, dir, "b.json", "{broken")
	writeFile(t, dir, "notes.txt", "ignored")

	second := Dataset{
		Workouts:  []models.Workout{{ID: "w2", Name: "Upper"}},
		Instances: []models.ExerciseInstance{{ID: "j1", WorkoutID: "w2", ExerciseID: "press"}},
		Sets:      []models.ExerciseSet{{ID: "t1", InstanceID: "j1", SetNumber: 1, Completion: models.CompletionPending}},
	}
	f, err := os.Create(filepath.Join(dir, "c.json.gz"))
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	require.NoError(t, json.NewEncoder(zw).Encode(second))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	stats, err := New(db, testLogger(), false, false).Import(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 1, stats.FilesErrored)
	assert.Equal(t, 2, stats.WorkoutsImported)

	tree, err := db.Tree(context.Background(), "w2")
	require.NoError(t, err)
	assert.Equal(t, []string{"press"}, tree.Workout.ExerciseIDs)
	assert.Equal(t, []string{"t1"}, tree.Instances[0].SetIDs)
}

// TestNormalizeCompletion verifies legacy values become pending without
// actual values.
func TestNormalizeCompletion(t *testing.T) {
	reps := 5
	s := models.ExerciseSet{Completion: "scheduled", ActualReps: &reps}
	assert.True(t, normalizeCompletion(&s))
	assert.Equal(t, models.CompletionPending, s.Completion)
	assert.Nil(t, s.ActualReps)

	done := models.ExerciseSet{Completion: models.CompletionCompleted, ActualReps: &reps}
	assert.False(t, normalizeCompletion(&done))
	assert.NotNil(t, done.ActualReps)
}
