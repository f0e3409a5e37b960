package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleetguard/fleetguard/agent"
)

type agentRepo struct {
	db *Database
}

func NewAgentRepository(db *Database) *agentRepo {
	return &agentRepo{db: db}
}

type dbAgent struct {
	ID            string         `db:"id"`
	Name          sql.NullString `db:"name"`
	Organization  sql.NullString `db:"organization"`
	SchemaVersion int            `db:"schema_version"`
	Alive         bool           `db:"alive"`
	AliveHistory  []byte         `db:"alive_history"`
	MissedRounds  int            `db:"missed_rounds"`
	Inactive      bool           `db:"inactive"`
	RegisteredAt  time.Time      `db:"registered_at"`
}

func (r *agentRepo) Create(ctx context.Context, a agent.Agent) error {
	query := `INSERT INTO agents (id, name, organization, schema_version, alive, alive_history, missed_rounds, inactive, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	history, err := json.Marshal(a.AliveHistory)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query,
		a.ID, nullString(a.Name), nullString(a.Organization), a.SchemaVersion,
		a.Alive, history, a.MissedRounds, a.Inactive, a.RegisteredAt,
	); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *agentRepo) Get(ctx context.Context, id string) (agent.Agent, error) {
	query := `SELECT id, name, organization, schema_version, alive, alive_history, missed_rounds, inactive, registered_at
		FROM agents WHERE id = ?`

	var dba dbAgent
	if err := r.db.GetContext(ctx, &dba, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return agent.Agent{}, ErrNotFound
		}

		return agent.Agent{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return toAgent(dba)
}

func (r *agentRepo) Update(ctx context.Context, a agent.Agent) error {
	query := `UPDATE agents SET
		name = ?,
		organization = ?,
		schema_version = ?,
		alive = ?,
		alive_history = ?,
		missed_rounds = ?,
		inactive = ?
		WHERE id = ?`

	history, err := json.Marshal(a.AliveHistory)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query,
		nullString(a.Name), nullString(a.Organization), a.SchemaVersion,
		a.Alive, history, a.MissedRounds, a.Inactive, a.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *agentRepo) List(ctx context.Context, offset, limit uint64) ([]agent.Agent, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM agents`); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT id, name, organization, schema_version, alive, alive_history, missed_rounds, inactive, registered_at
		FROM agents ORDER BY id ASC LIMIT ? OFFSET ?`

	var dbAgents []dbAgent
	if err := r.db.SelectContext(ctx, &dbAgents, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	agents := make([]agent.Agent, 0, len(dbAgents))
	for _, dba := range dbAgents {
		a, err := toAgent(dba)
		if err != nil {
			return nil, 0, err
		}
		agents = append(agents, a)
	}

	return agents, total, nil
}

func toAgent(dba dbAgent) (agent.Agent, error) {
	a := agent.Agent{
		ID:            dba.ID,
		Name:          dba.Name.String,
		Organization:  dba.Organization.String,
		SchemaVersion: dba.SchemaVersion,
		Alive:         dba.Alive,
		MissedRounds:  dba.MissedRounds,
		Inactive:      dba.Inactive,
		RegisteredAt:  dba.RegisteredAt,
	}
	if len(dba.AliveHistory) > 0 {
		if err := json.Unmarshal(dba.AliveHistory, &a.AliveHistory); err != nil {
			return agent.Agent{}, fmt.Errorf("%w: %w", ErrDBScan, err)
		}
	}

	return a, nil
}
