package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/saveable/internal/transport"
)

// SaveRepo stores save slots in Postgres, one JSONB row per participant.
// It implements transport.Storage.
type SaveRepo struct {
	db *DB
}

func NewSaveRepo(db *DB) *SaveRepo {
	return &SaveRepo{db: db}
}

// Write replaces the whole slot in one transaction.
func (r *SaveRepo) Write(ctx context.Context, slot string, entries map[string][]byte) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO save_slots (slot, saved_at) VALUES ($1, now())
		 ON CONFLICT (slot) DO UPDATE SET saved_at = EXCLUDED.saved_at`, slot,
	); err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM save_entries WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("clear slot: %w", err)
	}
	for participant, data := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO save_entries (slot, participant, data) VALUES ($1, $2, $3)`,
			slot, participant, string(data),
		); err != nil {
			return fmt.Errorf("insert entry %s: %w", participant, err)
		}
	}
	return tx.Commit(ctx)
}

// Read returns the entries of slot, or transport.ErrSlotEmpty.
func (r *SaveRepo) Read(ctx context.Context, slot string) (map[string][]byte, error) {
	var savedAt time.Time
	err := r.db.Pool.QueryRow(ctx, `SELECT saved_at FROM save_slots WHERE slot = $1`, slot).Scan(&savedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, transport.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT participant, data FROM save_entries WHERE slot = $1`, slot,
	)
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var participant string
		var data []byte
		if err := rows.Scan(&participant, &data); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out[participant] = data
	}
	return out, rows.Err()
}

// Slots lists the stored slots, newest first.
func (r *SaveRepo) Slots(ctx context.Context) ([]transport.SlotInfo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot, saved_at FROM save_slots ORDER BY saved_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var result []transport.SlotInfo
	for rows.Next() {
		var s transport.SlotInfo
		if err := rows.Scan(&s.Slot, &s.SavedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

var _ transport.Storage = (*SaveRepo)(nil)
