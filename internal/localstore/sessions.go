package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/repflow/internal/models"
)

// ActiveSession returns the member's active session, or nil if none.
func (d *DB) ActiveSession(ctx context.Context, memberID string) (*models.Session, error) {
	s, err := getBody[models.Session](ctx, d.db,
		`SELECT body FROM sessions WHERE member_id = ? AND status = ?`,
		memberID, string(models.SessionActive))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	return &s, nil
}

// SessionsForWorkout returns every stored session that references the workout.
func (d *DB) SessionsForWorkout(ctx context.Context, workoutID string) ([]models.Session, error) {
	ss, err := listBodies[models.Session](ctx, d.db,
		`SELECT body FROM sessions WHERE workout_id = ? ORDER BY id ASC`, workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions for workout %s: %w", workoutID, err)
	}
	return ss, nil
}

// SaveSession upserts a session. The schema rejects a second active session
// for the same member.
func (d *DB) SaveSession(ctx context.Context, s models.Session) error {
	body, err := encode(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO sessions (id, member_id, workout_id, status, body) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, body = excluded.body`,
		s.ID, s.MemberID, s.WorkoutID, string(s.Status), body)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", s.ID, err)
	}
	return nil
}

// DeleteSession removes a session. Deleting a missing session is a no-op.
func (d *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}
