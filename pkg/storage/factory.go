package storage

import (
	"fmt"

	"github.com/fleetguard/fleetguard/pkg/storage/sqlite"
)

type Config struct {
	Type string `env:"COORDINATOR_STORAGE_TYPE" envDefault:"memory"`

	SQLitePath string `env:"COORDINATOR_SQLITE_PATH" envDefault:"./fleetguard.db"`

	BadgerPath string `env:"COORDINATOR_BADGER_PATH" envDefault:"./data/badger"`
}

// NewRepositories builds the repository set for the configured backend.
// Persistent backends must be reachable at startup; a connection failure
// here aborts startup rather than running with unrecorded state.
func NewRepositories(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case "sqlite":
		return newSQLiteRepositories(cfg)
	case "badger":
		return NewBadgerRepositories(cfg.BadgerPath)
	case "memory":
		return newMemoryRepositories(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

func newSQLiteRepositories(cfg Config) (*Repositories, error) {
	db, err := sqlite.NewDatabase(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Rounds:    sqlite.NewRoundRepository(db),
		Snapshots: sqlite.NewSnapshotRepository(db),
		Alerts:    sqlite.NewAlertRepository(db),
		Agents:    sqlite.NewAgentRepository(db),
		Honeypots: sqlite.NewHoneypotRepository(db),
		Closer:    db,
	}, nil
}

func newMemoryRepositories() *Repositories {
	return &Repositories{
		Rounds:    NewMemoryRounds(),
		Snapshots: NewMemorySnapshots(),
		Alerts:    NewMemoryAlerts(),
		Agents:    NewMemoryAgents(),
		Honeypots: NewMemoryHoneypots(),
	}
}
