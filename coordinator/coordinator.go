package coordinator

import (
	"context"
	"time"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/honeypot"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/round"
)

// Status is the fleet-level view served to operators: which snapshot is
// canonical, where the current round stands, and how healthy the fleet is.
type Status struct {
	SnapshotVersion     uint64      `json:"snapshot_version"`
	RoundID             uint64      `json:"round_id"`
	RoundState          round.State `json:"round_state"`
	ActiveAgents        int         `json:"active_agents"`
	RegisteredAgents    uint64      `json:"registered_agents"`
	LastSuccessfulRound uint64      `json:"last_successful_round"`
	TriggeredHoneypots  int         `json:"triggered_honeypots"`
}

type Service interface {
	RegisterAgent(ctx context.Context, a agent.Agent) (agent.Agent, error)
	GetAgent(ctx context.Context, agentID string) (agent.Agent, error)
	ListAgents(ctx context.Context, offset, limit uint64) (agent.Page, error)
	RecordHeartbeat(ctx context.Context, agentID string, at time.Time) error
	MarkOffline(ctx context.Context, agentID string) error

	OpenRound(ctx context.Context) (round.Round, error)
	CloseRound(ctx context.Context) error
	SubmitUpdate(ctx context.Context, u model.Update) error
	SubmitUpdateCBOR(ctx context.Context, data []byte) error
	GetRound(ctx context.Context, roundID uint64) (round.Round, error)
	ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error)

	LatestSnapshot(ctx context.Context) (model.Snapshot, error)
	GetSnapshot(ctx context.Context, version uint64) (model.Snapshot, error)

	Status(ctx context.Context) (Status, error)
	AppendAlert(ctx context.Context, rec alert.Record) (alert.Record, error)
	ListAlerts(ctx context.Context, limit uint64) ([]alert.Record, error)

	RegisterHoneypot(ctx context.Context, e honeypot.Entry) (honeypot.Entry, error)
	TriggerHoneypot(ctx context.Context, decoyID string) error
	ListHoneypots(ctx context.Context) ([]honeypot.Entry, error)

	// Run drives the round lifecycle until the context is cancelled.
	Run(ctx context.Context) error

	Subscribe(ctx context.Context) error
}
