package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/jackc/pgx/v5"
)

// workoutBody is the jsonb document stored for a workout. Sets live in
// their own rows so single-set pushes can be ordered independently.
type workoutBody struct {
	Workout   models.Workout            `json:"workout"`
	Instances []models.ExerciseInstance `json:"instances"`
}

// SaveSnapshot stores a full workout subtree. The workout row and each set
// row are only replaced when the stored copy is not newer than SentAt.
func (db *DB) SaveSnapshot(ctx context.Context, snap models.WorkoutSnapshot) (models.PushResult, error) {
	var res models.PushResult
	w := snap.Tree.Workout
	body, err := json.Marshal(workoutBody{Workout: w, Instances: snap.Tree.Instances})
	if err != nil {
		return res, fmt.Errorf("encoding workout %s: %w", w.ID, err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("beginning snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		INSERT INTO workouts (id, member_id, program_id, status, completed_date, body, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			member_id = EXCLUDED.member_id,
			program_id = EXCLUDED.program_id,
			status = EXCLUDED.status,
			completed_date = EXCLUDED.completed_date,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
		WHERE workouts.updated_at <= EXCLUDED.updated_at`,
		w.ID, snap.MemberID, w.ProgramID, string(w.Status), w.CompletedDate, body, snap.SentAt)
	if err != nil {
		return res, fmt.Errorf("upserting workout %s: %w", w.ID, err)
	}
	res.Applied = tag.RowsAffected() == 1

	n, err := upsertSets(ctx, tx, snap.MemberID, w.ID, snap.Tree.Sets, snap.SentAt)
	if err != nil {
		return res, err
	}
	res.Sets = int(n)
	res.Stale = len(snap.Tree.Sets) - res.Sets

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("committing snapshot %s: %w", w.ID, err)
	}
	return res, nil
}

// GetWorkout returns the stored subtree for a workout, with the newest
// copy of every set. Returns ErrNotFound if no snapshot was ever pushed.
func (db *DB) GetWorkout(ctx context.Context, id string) (*models.StoredWorkout, error) {
	var (
		stored models.StoredWorkout
		raw    []byte
	)
	err := db.Pool.QueryRow(ctx,
		`SELECT member_id, body, updated_at FROM workouts WHERE id = $1`, id,
	).Scan(&stored.MemberID, &raw, &stored.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout %s: %w", id, err)
	}

	var body workoutBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decoding workout %s: %w", id, err)
	}
	stored.Tree.Workout = body.Workout
	stored.Tree.Instances = body.Instances

	sets, latest, err := db.setsForWorkout(ctx, id)
	if err != nil {
		return nil, err
	}
	stored.Tree.Sets = sets
	if latest.After(stored.UpdatedAt) {
		stored.UpdatedAt = latest
	}
	stored.Tree.SortInstances()
	return &stored, nil
}

// WorkoutRef identifies a stored workout.
type WorkoutRef struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListWorkouts returns a member's stored workouts, most recently updated first.
func (db *DB) ListWorkouts(ctx context.Context, memberID string) ([]WorkoutRef, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, status, updated_at FROM workouts WHERE member_id = $1 ORDER BY updated_at DESC, id ASC`,
		memberID)
	if err != nil {
		return nil, fmt.Errorf("listing workouts: %w", err)
	}
	defer rows.Close()

	var result []WorkoutRef
	for rows.Next() {
		var ref WorkoutRef
		if err := rows.Scan(&ref.ID, &ref.Status, &ref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}
