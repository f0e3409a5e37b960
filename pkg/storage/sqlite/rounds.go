package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/round"
)

type roundRepo struct {
	db *Database
}

func NewRoundRepository(db *Database) *roundRepo {
	return &roundRepo{db: db}
}

type dbRound struct {
	ID       uint64       `db:"id"`
	State    uint8        `db:"state"`
	OpenedAt time.Time    `db:"opened_at"`
	Deadline time.Time    `db:"deadline"`
	ClosedAt sql.NullTime `db:"closed_at"`
	Expected []byte       `db:"expected"`
	Received []byte       `db:"received"`
}

func (r *roundRepo) Create(ctx context.Context, rnd round.Round) error {
	query := `INSERT INTO rounds (id, state, opened_at, deadline, closed_at, expected, received)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	expected, err := json.Marshal(rnd.Expected)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	received, err := json.Marshal(rnd.Received)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query,
		rnd.ID, uint8(rnd.State), rnd.OpenedAt, rnd.Deadline,
		nullTime(rnd.ClosedAt), expected, received,
	); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *roundRepo) Update(ctx context.Context, rnd round.Round) error {
	query := `UPDATE rounds SET state = ?, closed_at = ?, received = ? WHERE id = ?`

	received, err := json.Marshal(rnd.Received)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, uint8(rnd.State), nullTime(rnd.ClosedAt), received, rnd.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *roundRepo) Get(ctx context.Context, id uint64) (round.Round, error) {
	query := `SELECT id, state, opened_at, deadline, closed_at, expected, received FROM rounds WHERE id = ?`

	var dbr dbRound
	if err := r.db.GetContext(ctx, &dbr, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return round.Round{}, ErrNotFound
		}

		return round.Round{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return toRound(dbr)
}

func (r *roundRepo) LastID(ctx context.Context) (uint64, error) {
	var last sql.NullInt64
	if err := r.db.GetContext(ctx, &last, `SELECT MAX(id) FROM rounds`); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}
	if !last.Valid {
		return 0, nil
	}

	return uint64(last.Int64), nil
}

func (r *roundRepo) List(ctx context.Context, offset, limit uint64) ([]round.Summary, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM rounds`); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT id, state, opened_at, deadline, closed_at, expected, received
		FROM rounds ORDER BY id DESC LIMIT ? OFFSET ?`

	var dbRounds []dbRound
	if err := r.db.SelectContext(ctx, &dbRounds, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	summaries := make([]round.Summary, 0, len(dbRounds))
	for _, dbr := range dbRounds {
		rnd, err := toRound(dbr)
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, rnd.Summary())
	}

	return summaries, total, nil
}

func toRound(dbr dbRound) (round.Round, error) {
	rnd := round.Round{
		ID:       dbr.ID,
		State:    round.State(dbr.State),
		OpenedAt: dbr.OpenedAt,
		Deadline: dbr.Deadline,
		Received: make(map[string]model.Update),
	}
	if dbr.ClosedAt.Valid {
		rnd.ClosedAt = dbr.ClosedAt.Time
	}
	if len(dbr.Expected) > 0 {
		if err := json.Unmarshal(dbr.Expected, &rnd.Expected); err != nil {
			return round.Round{}, fmt.Errorf("%w: %w", ErrDBScan, err)
		}
	}
	if len(dbr.Received) > 0 {
		if err := json.Unmarshal(dbr.Received, &rnd.Received); err != nil {
			return round.Round{}, fmt.Errorf("%w: %w", ErrDBScan, err)
		}
	}

	return rnd, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t, Valid: true}
}
