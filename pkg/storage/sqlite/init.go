package sqlite

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"

	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
)

var (
	ErrDBConnection = errors.New("database connection error")
	ErrDBQuery      = errors.New("database query error")
	ErrDBScan       = errors.New("database scan error")
	ErrCreate       = errors.New("create error")
	ErrUpdate       = errors.New("update error")

	// ErrNotFound aliases the shared sentinel so callers can match either.
	ErrNotFound = pkgerrors.ErrNotFound
)

type Database struct {
	*sqlx.DB
}

func NewDatabase(path string) (*Database, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &Database{DB: db}

	if err := database.Migrate(); err != nil {
		return nil, err
	}

	return database, nil
}

func (db *Database) Migrate() error {
	migrations := &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "1_create_tables",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS rounds (
						id INTEGER PRIMARY KEY,
						state INTEGER NOT NULL DEFAULT 0,
						opened_at TIMESTAMP NOT NULL,
						deadline TIMESTAMP NOT NULL,
						closed_at TIMESTAMP,
						expected TEXT,
						received TEXT
					)`,
					`CREATE INDEX IF NOT EXISTS idx_rounds_state ON rounds(state)`,
					`CREATE TABLE IF NOT EXISTS snapshots (
						version INTEGER PRIMARY KEY,
						schema_version INTEGER NOT NULL,
						weights TEXT NOT NULL,
						bias REAL NOT NULL,
						created_at TIMESTAMP NOT NULL
					)`,
					`CREATE TABLE IF NOT EXISTS alerts (
						id TEXT PRIMARY KEY,
						category TEXT NOT NULL,
						agent_id TEXT,
						timestamp TIMESTAMP NOT NULL,
						threat_score REAL NOT NULL,
						features TEXT,
						severity INTEGER NOT NULL,
						transition TEXT,
						mitigation_action TEXT,
						description TEXT,
						seq INTEGER
					)`,
					`CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp)`,
					`CREATE TABLE IF NOT EXISTS agents (
						id TEXT PRIMARY KEY,
						name TEXT,
						organization TEXT,
						schema_version INTEGER NOT NULL,
						alive INTEGER DEFAULT 0,
						alive_history TEXT,
						missed_rounds INTEGER DEFAULT 0,
						inactive INTEGER DEFAULT 0,
						registered_at TIMESTAMP NOT NULL
					)`,
					`CREATE TABLE IF NOT EXISTS honeypots (
						decoy_id TEXT PRIMARY KEY,
						agent_id TEXT NOT NULL,
						path TEXT,
						created_at TIMESTAMP NOT NULL,
						triggered INTEGER DEFAULT 0,
						triggered_at TIMESTAMP
					)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS rounds`,
					`DROP TABLE IF EXISTS snapshots`,
					`DROP TABLE IF EXISTS alerts`,
					`DROP TABLE IF EXISTS agents`,
					`DROP TABLE IF EXISTS honeypots`,
				},
			},
		},
	}

	if _, err := migrate.Exec(db.DB.DB, "sqlite3", migrations, migrate.Up); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
