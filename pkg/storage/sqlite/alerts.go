package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetguard/fleetguard/alert"
)

type alertRepo struct {
	db *Database
}

func NewAlertRepository(db *Database) *alertRepo {
	return &alertRepo{db: db}
}

type dbAlert struct {
	ID               string         `db:"id"`
	Category         string         `db:"category"`
	AgentID          sql.NullString `db:"agent_id"`
	Timestamp        time.Time      `db:"timestamp"`
	ThreatScore      float64        `db:"threat_score"`
	Features         []byte         `db:"features"`
	Severity         uint8          `db:"severity"`
	Transition       sql.NullString `db:"transition"`
	MitigationAction sql.NullString `db:"mitigation_action"`
	Description      sql.NullString `db:"description"`
	Seq              sql.NullInt64  `db:"seq"`
}

// Append is the only write path. There is no update or delete.
func (r *alertRepo) Append(ctx context.Context, rec alert.Record) error {
	query := `INSERT INTO alerts (id, category, agent_id, timestamp, threat_score, features, severity, transition, mitigation_action, description, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM alerts))`

	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Category, nullString(rec.AgentID), rec.Timestamp,
		rec.ThreatScore, features, uint8(rec.Severity),
		nullString(rec.Transition), nullString(rec.MitigationAction),
		nullString(rec.Description),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *alertRepo) List(ctx context.Context, limit uint64) ([]alert.Record, error) {
	query := `SELECT id, category, agent_id, timestamp, threat_score, features, severity, transition, mitigation_action, description, seq
		FROM alerts ORDER BY seq DESC LIMIT ?`

	var dbAlerts []dbAlert
	if err := r.db.SelectContext(ctx, &dbAlerts, query, limit); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	records := make([]alert.Record, 0, len(dbAlerts))
	for _, dba := range dbAlerts {
		rec, err := toAlert(dba)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func toAlert(dba dbAlert) (alert.Record, error) {
	rec := alert.Record{
		ID:               dba.ID,
		Category:         dba.Category,
		AgentID:          dba.AgentID.String,
		Timestamp:        dba.Timestamp,
		ThreatScore:      dba.ThreatScore,
		Severity:         alert.Severity(dba.Severity),
		Transition:       dba.Transition.String,
		MitigationAction: dba.MitigationAction.String,
		Description:      dba.Description.String,
	}
	if len(dba.Features) > 0 {
		if err := json.Unmarshal(dba.Features, &rec.Features); err != nil {
			return alert.Record{}, fmt.Errorf("%w: %w", ErrDBScan, err)
		}
	}

	return rec, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: s, Valid: true}
}
