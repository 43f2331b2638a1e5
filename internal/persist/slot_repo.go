package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Revision is one historical save of a slot.
type Revision struct {
	Revision int64
	Payload  []byte
	SavedAt  time.Time
}

// SlotRepo keeps loop memory save slots in postgres. Every save bumps the
// slot's revision and appends to its history.
type SlotRepo struct {
	db   *DB
	keep int
}

// NewSlotRepo keeps the last keep revisions per slot; keep <= 0 keeps all.
func NewSlotRepo(db *DB, keep int) *SlotRepo {
	return &SlotRepo{db: db, keep: keep}
}

// Load returns the slot payload. A missing slot is not an error.
func (r *SlotRepo) Load(ctx context.Context, slot string) ([]byte, bool, error) {
	var payload []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT payload FROM save_slots WHERE slot = $1`, slot,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load slot %s: %w", slot, err)
	}
	return payload, true, nil
}

// Save writes payload and its history row in one transaction.
func (r *SlotRepo) Save(ctx context.Context, slot string, payload []byte) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save slot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var rev int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO save_slots (slot, payload) VALUES ($1, $2)
		 ON CONFLICT (slot) DO UPDATE
		 SET payload = EXCLUDED.payload, revision = save_slots.revision + 1, updated_at = now()
		 RETURNING revision`,
		slot, payload,
	).Scan(&rev); err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO save_slot_history (slot, revision, payload) VALUES ($1, $2, $3)`,
		slot, rev, payload,
	); err != nil {
		return fmt.Errorf("save slot history: %w", err)
	}
	if r.keep > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM save_slot_history WHERE slot = $1 AND revision <= $2`,
			slot, rev-int64(r.keep),
		); err != nil {
			return fmt.Errorf("prune slot history: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// History returns up to limit revisions, newest first.
func (r *SlotRepo) History(ctx context.Context, slot string, limit int) ([]Revision, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT revision, payload, saved_at FROM save_slot_history
		 WHERE slot = $1 ORDER BY revision DESC LIMIT $2`,
		slot, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("slot history %s: %w", slot, err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var rv Revision
		if err := rows.Scan(&rv.Revision, &rv.Payload, &rv.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// Delete drops the slot and its history.
func (r *SlotRepo) Delete(ctx context.Context, slot string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete slot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM save_slot_history WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("delete slot history: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM save_slots WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return tx.Commit(ctx)
}
