package storage

import (
	"context"
	"fmt"
	"time"
)

// PushLog records the outcome of one client push.
type PushLog struct {
	ID           int64     `json:"id"`
	MemberID     string    `json:"member_id"`
	CreatedAt    time.Time `json:"created_at"`
	Kind         string    `json:"kind"`
	WorkoutID    string    `json:"workout_id"`
	Status       string    `json:"status"`
	Applied      bool      `json:"applied"`
	SetsReceived int       `json:"sets_received"`
	SetsApplied  int       `json:"sets_applied"`
	SetsStale    int       `json:"sets_stale"`
	SetsRejected int       `json:"sets_rejected"`
	DurationMs   *int      `json:"duration_ms"`
	ErrorMessage *string   `json:"error_message"`
}

// InsertPushLog stores a push outcome and returns its ID.
func (db *DB) InsertPushLog(ctx context.Context, log PushLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO push_logs (member_id, kind, workout_id, status, applied,
		 sets_received, sets_applied, sets_stale, sets_rejected, duration_ms, error_message)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING id`,
		log.MemberID, log.Kind, log.WorkoutID, log.Status, log.Applied,
		log.SetsReceived, log.SetsApplied, log.SetsStale, log.SetsRejected,
		log.DurationMs, log.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting push log: %w", err)
	}
	return id, nil
}

// QueryPushLogs returns the most recent push logs for a member.
func (db *DB) QueryPushLogs(ctx context.Context, memberID string, limit int) ([]PushLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, member_id, created_at, kind, workout_id, status, applied,
		 sets_received, sets_applied, sets_stale, sets_rejected, duration_ms, error_message
		 FROM push_logs
		 WHERE member_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying push logs: %w", err)
	}
	defer rows.Close()

	var result []PushLog
	for rows.Next() {
		var l PushLog
		if err := rows.Scan(&l.ID, &l.MemberID, &l.CreatedAt, &l.Kind, &l.WorkoutID, &l.Status,
			&l.Applied, &l.SetsReceived, &l.SetsApplied, &l.SetsStale, &l.SetsRejected,
			&l.DurationMs, &l.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning push log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
