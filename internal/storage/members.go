package storage

import (
	"context"
	"fmt"
)

// TouchMember records that a member pushed data. Creates the member on
// first contact and bumps last_seen afterwards.
func (db *DB) TouchMember(ctx context.Context, memberID string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO members (id)
		VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET last_seen = NOW()
	`, memberID)
	if err != nil {
		return fmt.Errorf("touching member %s: %w", memberID, err)
	}
	return nil
}
