package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
)

// Records is the storage the sync provider writes to.
type Records interface {
	TouchMember(ctx context.Context, memberID string) error
	SaveSnapshot(ctx context.Context, snap models.WorkoutSnapshot) (models.PushResult, error)
	SaveSet(ctx context.Context, upd models.SetUpdate) (bool, error)
	InsertPushLog(ctx context.Context, log storage.PushLog) (int64, error)
}

// ValidationError rejects a whole push.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Provider validates and stores workout pushes from clients.
type Provider struct {
	db  Records
	log *slog.Logger
	now func() time.Time
}

// NewProvider creates a new sync ingest provider.
func NewProvider(db Records, log *slog.Logger) *Provider {
	return &Provider{db: db, log: log, now: time.Now}
}

// IngestSnapshot stores a full workout subtree. Sets that fail validation
// are dropped and counted; the rest of the snapshot is still stored.
func (p *Provider) IngestSnapshot(ctx context.Context, snap models.WorkoutSnapshot) (*Result, error) {
	start := p.now()
	result := &Result{WorkoutsReceived: 1, SetsReceived: len(snap.Tree.Sets)}

	if err := checkSnapshot(snap); err != nil {
		return result, err
	}
	if snap.SentAt.IsZero() {
		snap.SentAt = start
	}
	snap.Tree.Sets = p.filterSets(snap.Tree, result)

	if err := p.db.TouchMember(ctx, snap.MemberID); err != nil {
		return result, err
	}
	push, err := p.db.SaveSnapshot(ctx, snap)
	if err != nil {
		p.record(ctx, "snapshot", snap.MemberID, snap.Tree.Workout.ID, start, result, err)
		return result, fmt.Errorf("storing snapshot: %w", err)
	}
	if push.Applied {
		result.WorkoutsApplied = 1
	}
	result.SetsApplied = push.Sets
	result.SetsStale = push.Stale
	if result.SetsRejected > 0 {
		result.Message = fmt.Sprintf("%d sets were rejected and not stored", result.SetsRejected)
	}

	p.log.Info("snapshot ingested",
		"member_id", snap.MemberID,
		"workout_id", snap.Tree.Workout.ID,
		"applied", push.Applied,
		"sets", result.SetsApplied,
		"stale", result.SetsStale,
		"rejected", result.SetsRejected,
	)
	p.record(ctx, "snapshot", snap.MemberID, snap.Tree.Workout.ID, start, result, nil)
	return result, nil
}

// IngestSet stores one set pushed on its own.
func (p *Provider) IngestSet(ctx context.Context, upd models.SetUpdate) (*Result, error) {
	start := p.now()
	result := &Result{SetsReceived: 1}

	if upd.MemberID == "" {
		return result, &ValidationError{Field: "memberId", Reason: "required"}
	}
	if upd.WorkoutID == "" {
		return result, &ValidationError{Field: "workoutId", Reason: "required"}
	}
	if reason := checkSet(upd.Set); reason != "" {
		return result, &ValidationError{Field: "set", Reason: reason}
	}
	if upd.SentAt.IsZero() {
		upd.SentAt = start
	}

	if err := p.db.TouchMember(ctx, upd.MemberID); err != nil {
		return result, err
	}
	applied, err := p.db.SaveSet(ctx, upd)
	if err != nil {
		p.record(ctx, "set", upd.MemberID, upd.WorkoutID, start, result, err)
		return result, fmt.Errorf("storing set: %w", err)
	}
	if applied {
		result.SetsApplied = 1
	} else {
		result.SetsStale = 1
	}

	p.log.Debug("set ingested", "member_id", upd.MemberID, "set_id", upd.Set.ID, "applied", applied)
	p.record(ctx, "set", upd.MemberID, upd.WorkoutID, start, result, nil)
	return result, nil
}

// filterSets drops sets that reference unknown instances, repeat an id,
// or carry an inconsistent completion.
func (p *Provider) filterSets(tree models.WorkoutTree, result *Result) []models.ExerciseSet {
	instances := make(map[string]bool, len(tree.Instances))
	for _, inst := range tree.Instances {
		instances[inst.ID] = true
	}

	seen := make(map[string]bool, len(tree.Sets))
	kept := make([]models.ExerciseSet, 0, len(tree.Sets))
	for _, s := range tree.Sets {
		reason := checkSet(s)
		switch {
		case reason != "":
		case !instances[s.InstanceID]:
			reason = "unknown exercise instance " + s.InstanceID
		case seen[s.ID]:
			reason = "duplicate id"
		}
		if reason != "" {
			p.log.Warn("rejected set", "set_id", s.ID, "workout_id", tree.Workout.ID, "reason", reason)
			result.SetsRejected++
			result.RejectedIDs = append(result.RejectedIDs, s.ID)
			continue
		}
		seen[s.ID] = true
		kept = append(kept, s)
	}
	return kept
}

func (p *Provider) record(ctx context.Context, kind, memberID, workoutID string, start time.Time, result *Result, err error) {
	ms := int(p.now().Sub(start).Milliseconds())
	entry := storage.PushLog{
		MemberID:     memberID,
		Kind:         kind,
		WorkoutID:    workoutID,
		Status:       "success",
		Applied:      result.WorkoutsApplied > 0 || result.SetsApplied > 0,
		SetsReceived: result.SetsReceived,
		SetsApplied:  result.SetsApplied,
		SetsStale:    result.SetsStale,
		SetsRejected: result.SetsRejected,
		DurationMs:   &ms,
	}
	if err != nil {
		msg := err.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	}
	if _, logErr := p.db.InsertPushLog(ctx, entry); logErr != nil {
		p.log.Warn("failed to write push log", "workout_id", workoutID, "error", logErr)
	}
}

func checkSnapshot(snap models.WorkoutSnapshot) error {
	w := snap.Tree.Workout
	switch {
	case snap.MemberID == "":
		return &ValidationError{Field: "memberId", Reason: "required"}
	case w.ID == "":
		return &ValidationError{Field: "workout.id", Reason: "required"}
	case !w.Status.Valid():
		return &ValidationError{Field: "workout.status", Reason: fmt.Sprintf("unknown status %q", w.Status)}
	}
	for _, inst := range snap.Tree.Instances {
		if inst.ID == "" {
			return &ValidationError{Field: "instance.id", Reason: "required"}
		}
		if inst.WorkoutID != "" && inst.WorkoutID != w.ID {
			return &ValidationError{Field: "instance.workoutId", Reason: "instance " + inst.ID + " belongs to " + inst.WorkoutID}
		}
	}
	return nil
}

// checkSet returns a rejection reason, or "" for a valid set.
func checkSet(s models.ExerciseSet) string {
	switch {
	case s.ID == "":
		return "missing id"
	case s.InstanceID == "":
		return "missing exercise instance"
	}
	switch s.Completion {
	case models.CompletionPending:
		if s.ActualWeight != nil || s.ActualReps != nil || s.ActualDurationSec != nil || s.ActualDistance != nil {
			return "pending set carries actual values"
		}
	case models.CompletionCompleted, models.CompletionSkipped:
	default:
		return fmt.Sprintf("unknown completion %q", s.Completion)
	}
	return ""
}
