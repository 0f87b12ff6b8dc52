package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
)

type fakeRecords struct {
	members   []string
	snapshots []models.WorkoutSnapshot
	sets      []models.SetUpdate
	logs      []storage.PushLog
	stale     bool
	err       error
}

func (f *fakeRecords) TouchMember(_ context.Context, memberID string) error {
	f.members = append(f.members, memberID)
	return nil
}

func (f *fakeRecords) SaveSnapshot(_ context.Context, snap models.WorkoutSnapshot) (models.PushResult, error) {
	if f.err != nil {
		return models.PushResult{}, f.err
	}
	f.snapshots = append(f.snapshots, snap)
	if f.stale {
		return models.PushResult{Stale: len(snap.Tree.Sets)}, nil
	}
	return models.PushResult{Applied: true, Sets: len(snap.Tree.Sets)}, nil
}

func (f *fakeRecords) SaveSet(_ context.Context, upd models.SetUpdate) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.sets = append(f.sets, upd)
	return !f.stale, nil
}

func (f *fakeRecords) InsertPushLog(_ context.Context, log storage.PushLog) (int64, error) {
	f.logs = append(f.logs, log)
	return int64(len(f.logs)), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func snapshot() models.WorkoutSnapshot {
	reps := 8
	return models.WorkoutSnapshot{
		MemberID: "m1",
		Tree: models.WorkoutTree{
			Workout: models.Workout{ID: "w1", Status: models.StatusInProgress, ExerciseIDs: []string{"i1"}},
			Instances: []models.ExerciseInstance{
				{ID: "i1", WorkoutID: "w1", ExerciseID: "squat", SetIDs: []string{"s1", "s2"}, Status: models.StatusInProgress},
			},
			Sets: []models.ExerciseSet{
				{ID: "s1", InstanceID: "i1", SetNumber: 1, ActualReps: &reps, Completion: models.CompletionCompleted},
				{ID: "s2", InstanceID: "i1", SetNumber: 2, Completion: models.CompletionPending},
			},
		},
		SentAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// TestIngestSnapshotStoresValidTree verifies a valid snapshot is stored
// whole and a success push log is written.
func TestIngestSnapshotStoresValidTree(t *testing.T) {
	db := &fakeRecords{}
	p := NewProvider(db, testLogger())

	result, err := p.IngestSnapshot(context.Background(), snapshot())
	if err != nil {
		t.Fatalf("IngestSnapshot: %v", err)
	}
	if result.WorkoutsApplied != 1 || result.SetsApplied != 2 || result.SetsRejected != 0 {
		t.Errorf("result = %+v", result)
	}
	if len(db.members) != 1 || db.members[0] != "m1" {
		t.Errorf("members = %v, want [m1]", db.members)
	}
	if len(db.logs) != 1 || db.logs[0].Status != "success" || db.logs[0].Kind != "snapshot" {
		t.Errorf("logs = %+v", db.logs)
	}
	push := result.Push()
	if !push.Applied || push.Sets != 2 {
		t.Errorf("push = %+v", push)
	}
}

// TestIngestSnapshotRejectsBadSets verifies that inconsistent sets are
// dropped while the rest of the snapshot is stored.
func TestIngestSnapshotRejectsBadSets(t *testing.T) {
	db := &fakeRecords{}
	p := NewProvider(db, testLogger())

	w := 50.0
	snap := snapshot()
	snap.Tree.Sets = append(snap.Tree.Sets,
		models.ExerciseSet{ID: "s3", InstanceID: "nope", Completion: models.CompletionPending},
		models.ExerciseSet{ID: "s4", InstanceID: "i1", Completion: models.CompletionPending, ActualWeight: &w},
		models.ExerciseSet{ID: "s5", InstanceID: "i1", Completion: "scheduled"},
		models.ExerciseSet{ID: "s1", InstanceID: "i1", Completion: models.CompletionSkipped},
	)

	result, err := p.IngestSnapshot(context.Background(), snap)
	if err != nil {
		t.Fatalf("IngestSnapshot: %v", err)
	}
	if result.SetsReceived != 6 || result.SetsRejected != 4 || result.SetsApplied != 2 {
		t.Errorf("result = %+v", result)
	}
	if got := len(db.snapshots[0].Tree.Sets); got != 2 {
		t.Errorf("stored sets = %d, want 2", got)
	}
	if result.Message == "" {
		t.Error("expected a rejection message")
	}
}

// TestIngestSnapshotValidation verifies snapshot-level failures reject the
// whole push before anything is stored.
func TestIngestSnapshotValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.WorkoutSnapshot)
		field  string
	}{
		{"no member", func(s *models.WorkoutSnapshot) { s.MemberID = "" }, "memberId"},
		{"no workout id", func(s *models.WorkoutSnapshot) { s.Tree.Workout.ID = "" }, "workout.id"},
		{"bad status", func(s *models.WorkoutSnapshot) { s.Tree.Workout.Status = "done" }, "workout.status"},
		{"foreign instance", func(s *models.WorkoutSnapshot) { s.Tree.Instances[0].WorkoutID = "w2" }, "instance.workoutId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeRecords{}
			snap := snapshot()
			tt.mutate(&snap)

			_, err := NewProvider(db, testLogger()).IngestSnapshot(context.Background(), snap)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
			if len(db.snapshots) != 0 {
				t.Error("snapshot stored despite validation failure")
			}
		})
	}
}

// TestIngestSnapshotStale verifies a snapshot older than the stored copy is
// reported as not applied.
func TestIngestSnapshotStale(t *testing.T) {
	db := &fakeRecords{stale: true}
	result, err := NewProvider(db, testLogger()).IngestSnapshot(context.Background(), snapshot())
	if err != nil {
		t.Fatalf("IngestSnapshot: %v", err)
	}
	if result.WorkoutsApplied != 0 || result.SetsStale != 2 {
		t.Errorf("result = %+v", result)
	}
	if result.Push().Applied {
		t.Error("stale push reported as applied")
	}
}

// TestIngestSnapshotStorageError verifies storage failures are returned and
// logged as an error push.
func TestIngestSnapshotStorageError(t *testing.T) {
	db := &fakeRecords{err: errors.New("db down")}
	_, err := NewProvider(db, testLogger()).IngestSnapshot(context.Background(), snapshot())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(db.logs) != 1 || db.logs[0].Status != "error" || db.logs[0].ErrorMessage == nil {
		t.Errorf("logs = %+v", db.logs)
	}
}

// TestIngestSnapshotStampsSentAt verifies a push without a timestamp is
// ordered by arrival time.
func TestIngestSnapshotStampsSentAt(t *testing.T) {
	db := &fakeRecords{}
	p := NewProvider(db, testLogger())
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	snap := snapshot()
	snap.SentAt = time.Time{}
	if _, err := p.IngestSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("IngestSnapshot: %v", err)
	}
	if !db.snapshots[0].SentAt.Equal(now) {
		t.Errorf("SentAt = %v, want %v", db.snapshots[0].SentAt, now)
	}
}

// TestIngestSet verifies single-set pushes, including the stale case.
func TestIngestSet(t *testing.T) {
	upd := models.SetUpdate{
		MemberID:  "m1",
		WorkoutID: "w1",
		Set:       models.ExerciseSet{ID: "s1", InstanceID: "i1", Completion: models.CompletionSkipped},
		SentAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	db := &fakeRecords{}
	result, err := NewProvider(db, testLogger()).IngestSet(context.Background(), upd)
	if err != nil {
		t.Fatalf("IngestSet: %v", err)
	}
	if result.SetsApplied != 1 || len(db.sets) != 1 {
		t.Errorf("result = %+v, stored = %d", result, len(db.sets))
	}

	db = &fakeRecords{stale: true}
	result, err = NewProvider(db, testLogger()).IngestSet(context.Background(), upd)
	if err != nil {
		t.Fatalf("IngestSet stale: %v", err)
	}
	if result.SetsStale != 1 || result.Push().Applied {
		t.Errorf("stale result = %+v", result)
	}
}

// TestIngestSetValidation verifies malformed single-set pushes are rejected.
func TestIngestSetValidation(t *testing.T) {
	base := models.SetUpdate{
		MemberID:  "m1",
		WorkoutID: "w1",
		Set:       models.ExerciseSet{ID: "s1", InstanceID: "i1", Completion: models.CompletionPending},
	}
	tests := []struct {
		name   string
		mutate func(*models.SetUpdate)
	}{
		{"no member", func(u *models.SetUpdate) { u.MemberID = "" }},
		{"no workout", func(u *models.SetUpdate) { u.WorkoutID = "" }},
		{"no set id", func(u *models.SetUpdate) { u.Set.ID = "" }},
		{"bad completion", func(u *models.SetUpdate) { u.Set.Completion = "done" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upd := base
			tt.mutate(&upd)
			db := &fakeRecords{}
			_, err := NewProvider(db, testLogger()).IngestSet(context.Background(), upd)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if len(db.sets) != 0 {
				t.Error("set stored despite validation failure")
			}
		})
	}
}
