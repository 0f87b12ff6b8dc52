package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/jackc/pgx/v5"
)

const setColumns = 7

// SaveSet stores one set pushed on its own. Reports false when the stored
// row is newer than the push.
func (db *DB) SaveSet(ctx context.Context, upd models.SetUpdate) (bool, error) {
	n, err := upsertSets(ctx, db.Pool, upd.MemberID, upd.WorkoutID, []models.ExerciseSet{upd.Set}, upd.SentAt)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// upsertSets batch-upserts set rows with last-write-wins on updated_at.
// Returns the number of rows written.
func upsertSets(ctx context.Context, q execer, memberID, workoutID string, sets []models.ExerciseSet, at time.Time) (int64, error) {
	if len(sets) == 0 {
		return 0, nil
	}

	query := `INSERT INTO workout_sets (id, workout_id, member_id, instance_id, set_number,
		body, updated_at) VALUES `
	args := make([]any, 0, len(sets)*setColumns)
	valueStrings := make([]string, 0, len(sets))

	for i, s := range sets {
		body, err := json.Marshal(s)
		if err != nil {
			return 0, fmt.Errorf("encoding set %s: %w", s.ID, err)
		}
		base := i * setColumns
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args, s.ID, workoutID, memberID, s.InstanceID, s.SetNumber, body, at)
	}

	query += strings.Join(valueStrings, ",") + `
		ON CONFLICT (id) DO UPDATE SET
			workout_id = EXCLUDED.workout_id,
			member_id = EXCLUDED.member_id,
			instance_id = EXCLUDED.instance_id,
			set_number = EXCLUDED.set_number,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
		WHERE workout_sets.updated_at <= EXCLUDED.updated_at`

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("upserting sets for workout %s: %w", workoutID, err)
	}
	return tag.RowsAffected(), nil
}

// setsForWorkout returns a workout's stored sets and their newest update time.
func (db *DB) setsForWorkout(ctx context.Context, workoutID string) ([]models.ExerciseSet, time.Time, error) {
	var latest time.Time
	rows, err := db.Pool.Query(ctx,
		`SELECT body, updated_at FROM workout_sets
		 WHERE workout_id = $1
		 ORDER BY instance_id ASC, set_number ASC, id ASC`,
		workoutID)
	if err != nil {
		return nil, latest, fmt.Errorf("querying sets for workout %s: %w", workoutID, err)
	}

	sets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ExerciseSet, error) {
		var (
			raw []byte
			at  time.Time
			s   models.ExerciseSet
		)
		if err := row.Scan(&raw, &at); err != nil {
			return s, err
		}
		if at.After(latest) {
			latest = at
		}
		return s, json.Unmarshal(raw, &s)
	})
	if err != nil {
		return nil, latest, fmt.Errorf("scanning sets for workout %s: %w", workoutID, err)
	}
	return sets, latest, nil
}
