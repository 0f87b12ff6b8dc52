package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/repflow/internal/overlay"
)

// Compile-time check: *DB satisfies overlay.Store.
var _ overlay.Store = (*DB)(nil)

// Save appends a delta, replacing any earlier delta with the same id. A
// replaced delta takes a fresh sequence number.
func (d *DB) Save(ctx context.Context, delta overlay.Delta) (overlay.Delta, error) {
	delta = overlay.Prepare(delta, d.now)
	fields, err := json.Marshal(delta.Fields)
	if err != nil {
		return delta, fmt.Errorf("encoding delta fields: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return delta, fmt.Errorf("saving delta: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM deltas WHERE id = ?`, delta.ID); err != nil {
		return delta, fmt.Errorf("saving delta: replace: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO deltas (id, kind, entity_id, fields, at) VALUES (?, ?, ?, ?, ?)`,
		delta.ID, string(delta.Kind), delta.EntityID, string(fields), delta.At.Format(time.RFC3339Nano))
	if err != nil {
		return delta, fmt.Errorf("saving delta: insert: %w", err)
	}
	if delta.Seq, err = res.LastInsertId(); err != nil {
		return delta, fmt.Errorf("saving delta: seq: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return delta, fmt.Errorf("saving delta: commit: %w", err)
	}
	return delta, nil
}

// Deltas returns the deltas for the given entities in sequence order.
func (d *DB) Deltas(ctx context.Context, entityIDs ...string) ([]overlay.Delta, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT seq, id, kind, entity_id, fields, at FROM deltas
		 WHERE entity_id IN (`+placeholders(len(entityIDs))+`)
		 ORDER BY seq ASC`, stringArgs(entityIDs)...)
	if err != nil {
		return nil, fmt.Errorf("querying deltas: %w", err)
	}
	defer rows.Close()

	var out []overlay.Delta
	for rows.Next() {
		var (
			dl     overlay.Delta
			kind   string
			fields string
			at     string
		)
		if err := rows.Scan(&dl.Seq, &dl.ID, &kind, &dl.EntityID, &fields, &at); err != nil {
			return nil, fmt.Errorf("scanning delta: %w", err)
		}
		dl.Kind = overlay.Kind(kind)
		if err := json.Unmarshal([]byte(fields), &dl.Fields); err != nil {
			return nil, fmt.Errorf("decoding delta %s: %w", dl.ID, err)
		}
		if dl.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("decoding delta %s time: %w", dl.ID, err)
		}
		out = append(out, dl)
	}
	return out, rows.Err()
}

// Clear removes every delta for the given entities.
func (d *DB) Clear(ctx context.Context, entityIDs ...string) (int64, error) {
	if len(entityIDs) == 0 {
		return 0, nil
	}
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM deltas WHERE entity_id IN (`+placeholders(len(entityIDs))+`)`,
		stringArgs(entityIDs)...)
	if err != nil {
		return 0, fmt.Errorf("clearing deltas: %w", err)
	}
	return res.RowsAffected()
}

// HasDeltas reports whether any delta is recorded for the entity.
func (d *DB) HasDeltas(ctx context.Context, entityID string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deltas WHERE entity_id = ?`, entityID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("counting deltas: %w", err)
	}
	return n > 0, nil
}
