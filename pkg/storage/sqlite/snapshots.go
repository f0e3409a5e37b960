package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleetguard/fleetguard/pkg/model"
)

type snapshotRepo struct {
	db *Database
}

func NewSnapshotRepository(db *Database) *snapshotRepo {
	return &snapshotRepo{db: db}
}

type dbSnapshot struct {
	Version       uint64    `db:"version"`
	SchemaVersion int       `db:"schema_version"`
	Weights       []byte    `db:"weights"`
	Bias          float64   `db:"bias"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r *snapshotRepo) Save(ctx context.Context, s model.Snapshot) error {
	query := `INSERT INTO snapshots (version, schema_version, weights, bias, created_at)
		VALUES (?, ?, ?, ?, ?)`

	weights, err := json.Marshal(s.Weights)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, s.Version, s.SchemaVersion, weights, s.Bias, s.CreatedAt); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *snapshotRepo) Get(ctx context.Context, version uint64) (model.Snapshot, error) {
	query := `SELECT version, schema_version, weights, bias, created_at FROM snapshots WHERE version = ?`

	var dbs dbSnapshot
	if err := r.db.GetContext(ctx, &dbs, query, version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Snapshot{}, ErrNotFound
		}

		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return toSnapshot(dbs)
}

func (r *snapshotRepo) Latest(ctx context.Context) (model.Snapshot, error) {
	query := `SELECT version, schema_version, weights, bias, created_at
		FROM snapshots ORDER BY version DESC LIMIT 1`

	var dbs dbSnapshot
	if err := r.db.GetContext(ctx, &dbs, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Snapshot{}, ErrNotFound
		}

		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return toSnapshot(dbs)
}

func toSnapshot(dbs dbSnapshot) (model.Snapshot, error) {
	s := model.Snapshot{
		Version:       dbs.Version,
		SchemaVersion: dbs.SchemaVersion,
		Bias:          dbs.Bias,
		CreatedAt:     dbs.CreatedAt,
	}
	if err := json.Unmarshal(dbs.Weights, &s.Weights); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	return s, nil
}
