package storage

import (
	"context"
	"io"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/honeypot"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/round"
)

// RoundRepository persists round history. Ids are strictly increasing and
// gapless; LastID is used on restart so numbering never resets.
type RoundRepository interface {
	Create(ctx context.Context, r round.Round) error
	Update(ctx context.Context, r round.Round) error
	Get(ctx context.Context, id uint64) (round.Round, error)
	LastID(ctx context.Context) (uint64, error)
	List(ctx context.Context, offset, limit uint64) ([]round.Summary, uint64, error)
}

// SnapshotRepository persists the canonical model snapshot history.
// Snapshots are immutable once saved.
type SnapshotRepository interface {
	Save(ctx context.Context, s model.Snapshot) error
	Get(ctx context.Context, version uint64) (model.Snapshot, error)
	Latest(ctx context.Context) (model.Snapshot, error)
}

// AlertRepository is append-only. No update or delete is exposed;
// corrections happen via new records.
type AlertRepository interface {
	Append(ctx context.Context, rec alert.Record) error
	List(ctx context.Context, limit uint64) ([]alert.Record, error)
}

type AgentRepository interface {
	Create(ctx context.Context, a agent.Agent) error
	Get(ctx context.Context, id string) (agent.Agent, error)
	Update(ctx context.Context, a agent.Agent) error
	List(ctx context.Context, offset, limit uint64) ([]agent.Agent, uint64, error)
}

// HoneypotRepository tracks decoy registrations. Trigger flips the entry
// exactly once; triggering an already-triggered decoy is a no-op.
type HoneypotRepository interface {
	Register(ctx context.Context, e honeypot.Entry) error
	Trigger(ctx context.Context, decoyID string) error
	List(ctx context.Context) ([]honeypot.Entry, error)
}

type Repositories struct {
	Rounds    RoundRepository
	Snapshots SnapshotRepository
	Alerts    AlertRepository
	Agents    AgentRepository
	Honeypots HoneypotRepository
	// Closer closes the underlying persistent store. It is nil for the
	// in-memory backend.
	Closer io.Closer
}
