package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fleetguard/fleetguard/honeypot"
)

type honeypotRepo struct {
	db *Database
}

func NewHoneypotRepository(db *Database) *honeypotRepo {
	return &honeypotRepo{db: db}
}

type dbHoneypot struct {
	DecoyID     string         `db:"decoy_id"`
	AgentID     string         `db:"agent_id"`
	Path        sql.NullString `db:"path"`
	CreatedAt   time.Time      `db:"created_at"`
	Triggered   bool           `db:"triggered"`
	TriggeredAt sql.NullTime   `db:"triggered_at"`
}

func (r *honeypotRepo) Register(ctx context.Context, e honeypot.Entry) error {
	query := `INSERT INTO honeypots (decoy_id, agent_id, path, created_at, triggered, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query,
		e.DecoyID, e.AgentID, nullString(e.Path), e.CreatedAt, e.Triggered, nullTime(e.TriggeredAt),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

// Trigger flips the decoy exactly once; re-triggering is a no-op.
func (r *honeypotRepo) Trigger(ctx context.Context, decoyID string) error {
	query := `UPDATE honeypots SET triggered = 1, triggered_at = ? WHERE decoy_id = ? AND triggered = 0`

	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), decoyID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var count int
		if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM honeypots WHERE decoy_id = ?`, decoyID); err == nil && count == 0 {
			return ErrNotFound
		}
	}

	return nil
}

func (r *honeypotRepo) List(ctx context.Context) ([]honeypot.Entry, error) {
	query := `SELECT decoy_id, agent_id, path, created_at, triggered, triggered_at
		FROM honeypots ORDER BY decoy_id ASC`

	var dbHoneypots []dbHoneypot
	if err := r.db.SelectContext(ctx, &dbHoneypots, query); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	entries := make([]honeypot.Entry, 0, len(dbHoneypots))
	for _, dbh := range dbHoneypots {
		e := honeypot.Entry{
			DecoyID:   dbh.DecoyID,
			AgentID:   dbh.AgentID,
			Path:      dbh.Path.String,
			CreatedAt: dbh.CreatedAt,
			Triggered: dbh.Triggered,
		}
		if dbh.TriggeredAt.Valid {
			e.TriggeredAt = dbh.TriggeredAt.Time
		}
		entries = append(entries, e)
	}

	return entries, nil
}
