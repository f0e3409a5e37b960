package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/honeypot"
	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
	"github.com/fleetguard/fleetguard/pkg/fl"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/pkg/mqtt"
	"github.com/fleetguard/fleetguard/pkg/storage"
	"github.com/fleetguard/fleetguard/round"
)

const (
	defOffset = 0
	defLimit  = 100

	maxExpectedAgents = 10000
)

var errNoActiveAgents = errors.New("no active agents to open a round for")

// Config tunes the round lifecycle. MinQuorum of zero means a majority of
// the expected set is required.
type Config struct {
	ChannelID        string        `env:"CHANNEL_ID"            envDefault:"fleet"`
	SchemaVersion    int           `env:"SCHEMA_VERSION"        envDefault:"1"`
	RoundTimeout     time.Duration `env:"ROUND_TIMEOUT"         envDefault:"2m"`
	RoundInterval    time.Duration `env:"ROUND_INTERVAL"        envDefault:"30s"`
	MinQuorum        int           `env:"MIN_QUORUM"            envDefault:"0"`
	DropoutThreshold int           `env:"DROPOUT_THRESHOLD"     envDefault:"3"`
}

type service struct {
	cfg        Config
	repos      *storage.Repositories
	aggregator fl.Aggregator
	pubsub     mqtt.PubSub
	logger     *slog.Logger

	mu        sync.Mutex
	current   *round.Round
	snapshot  model.Snapshot
	lastGood  uint64
	nextID    uint64
	submitted chan struct{}
}

// NewService restores coordinator state from storage. Round numbering resumes
// at one past the highest persisted id so it never resets across restarts.
func NewService(ctx context.Context, cfg Config, repos *storage.Repositories, aggregator fl.Aggregator, pubsub mqtt.PubSub, logger *slog.Logger) (Service, error) {
	lastID, err := repos.Rounds.LastID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore round history: %w", err)
	}

	snapshot, err := repos.Snapshots.Latest(ctx)
	switch {
	case err == nil:
	case errors.Is(err, pkgerrors.ErrNotFound):
		snapshot = model.Zero(cfg.SchemaVersion)
		if err := repos.Snapshots.Save(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("failed to persist initial snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to restore model snapshot: %w", err)
	}

	return &service{
		cfg:        cfg,
		repos:      repos,
		aggregator: aggregator,
		pubsub:     pubsub,
		logger:     logger,
		snapshot:   snapshot,
		lastGood:   snapshot.Version,
		nextID:     lastID + 1,
	}, nil
}

func (svc *service) RegisterAgent(ctx context.Context, a agent.Agent) (agent.Agent, error) {
	if a.ID == "" {
		return agent.Agent{}, pkgerrors.ErrEmptyKey
	}
	if a.SchemaVersion != svc.cfg.SchemaVersion {
		return agent.Agent{}, pkgerrors.ErrSchemaMismatch
	}

	a.Inactive = false
	a.MissedRounds = 0

	existing, err := svc.repos.Agents.Get(ctx, a.ID)
	switch {
	case err == nil:
		// Re-registration reactivates a dropped agent.
		a.RegisteredAt = existing.RegisteredAt
		a.AliveHistory = existing.AliveHistory
		if err := svc.repos.Agents.Update(ctx, a); err != nil {
			return agent.Agent{}, err
		}
	case errors.Is(err, pkgerrors.ErrNotFound):
		a.RegisteredAt = time.Now().UTC()
		if err := svc.repos.Agents.Create(ctx, a); err != nil {
			return agent.Agent{}, err
		}
	default:
		return agent.Agent{}, err
	}

	return a, nil
}

func (svc *service) GetAgent(ctx context.Context, agentID string) (agent.Agent, error) {
	a, err := svc.repos.Agents.Get(ctx, agentID)
	if err != nil {
		return agent.Agent{}, err
	}
	a.SetAlive()

	return a, nil
}

func (svc *service) ListAgents(ctx context.Context, offset, limit uint64) (agent.Page, error) {
	agents, total, err := svc.repos.Agents.List(ctx, offset, limit)
	if err != nil {
		return agent.Page{}, err
	}
	for i := range agents {
		agents[i].SetAlive()
	}

	return agent.Page{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Agents: agents,
	}, nil
}

func (svc *service) RecordHeartbeat(ctx context.Context, agentID string, at time.Time) error {
	a, err := svc.repos.Agents.Get(ctx, agentID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return pkgerrors.ErrAgentNotRegistered
		}

		return err
	}
	a.RecordHeartbeat(at)

	return svc.repos.Agents.Update(ctx, a)
}

func (svc *service) MarkOffline(ctx context.Context, agentID string) error {
	a, err := svc.repos.Agents.Get(ctx, agentID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return pkgerrors.ErrAgentNotRegistered
		}

		return err
	}
	a.Alive = false

	return svc.repos.Agents.Update(ctx, a)
}

func (svc *service) OpenRound(ctx context.Context) (round.Round, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.current != nil && svc.current.State == round.Open {
		if err := svc.closeCurrentLocked(ctx); err != nil {
			return round.Round{}, err
		}
	}

	expected, err := svc.expectedAgents(ctx)
	if err != nil {
		return round.Round{}, err
	}
	if len(expected) == 0 {
		return round.Round{}, errNoActiveAgents
	}

	r := round.New(svc.nextID, expected, time.Now().UTC(), svc.cfg.RoundTimeout)
	if err := svc.repos.Rounds.Create(ctx, r); err != nil {
		return round.Round{}, err
	}
	svc.nextID++
	svc.current = &r
	svc.submitted = make(chan struct{}, 1)

	topic := fmt.Sprintf("fleet/%s/messages/control/coordinator/round/start", svc.cfg.ChannelID)
	msg := map[string]any{
		"round_id": r.ID,
		"deadline": r.Deadline,
		"snapshot": svc.snapshot,
	}
	if err := svc.pubsub.Publish(ctx, topic, msg); err != nil {
		svc.logger.WarnContext(ctx, "failed to broadcast round start",
			slog.Uint64("round_id", r.ID), slog.Any("error", err))
	}

	svc.logger.InfoContext(ctx, "round opened",
		slog.Uint64("round_id", r.ID),
		slog.Int("expected", len(expected)),
		slog.Time("deadline", r.Deadline))

	return r, nil
}

func (svc *service) CloseRound(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.closeCurrentLocked(ctx)
}

func (svc *service) SubmitUpdate(ctx context.Context, u model.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}

	a, err := svc.repos.Agents.Get(ctx, u.AgentID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return pkgerrors.ErrAgentNotRegistered
		}

		return err
	}
	if a.Inactive {
		return pkgerrors.ErrAgentInactive
	}
	if a.SchemaVersion != svc.cfg.SchemaVersion {
		return pkgerrors.ErrSchemaMismatch
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.current == nil || svc.current.State != round.Open || u.RoundID != svc.current.ID {
		return pkgerrors.ErrStaleRound
	}
	if u.BaseVersion != svc.snapshot.Version {
		return pkgerrors.ErrStaleRound
	}
	if !svc.current.IsExpected(u.AgentID) {
		return pkgerrors.ErrAgentNotRegistered
	}

	u.SubmittedAt = time.Now().UTC()
	// Resubmission overwrites; an agent is never counted twice.
	svc.current.Received[u.AgentID] = u

	if err := svc.repos.Rounds.Update(ctx, *svc.current); err != nil {
		return err
	}

	if svc.current.AllSubmitted() {
		select {
		case svc.submitted <- struct{}{}:
		default:
		}
	}

	return nil
}

func (svc *service) SubmitUpdateCBOR(ctx context.Context, data []byte) error {
	var u model.Update
	if err := cbor.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}

	return svc.SubmitUpdate(ctx, u)
}

func (svc *service) GetRound(ctx context.Context, roundID uint64) (round.Round, error) {
	return svc.repos.Rounds.Get(ctx, roundID)
}

func (svc *service) ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error) {
	summaries, total, err := svc.repos.Rounds.List(ctx, offset, limit)
	if err != nil {
		return round.Page{}, err
	}

	return round.Page{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Rounds: summaries,
	}, nil
}

func (svc *service) LatestSnapshot(ctx context.Context) (model.Snapshot, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.snapshot, nil
}

func (svc *service) GetSnapshot(ctx context.Context, version uint64) (model.Snapshot, error) {
	return svc.repos.Snapshots.Get(ctx, version)
}

func (svc *service) Status(ctx context.Context) (Status, error) {
	page, err := svc.ListAgents(ctx, defOffset, maxExpectedAgents)
	if err != nil {
		return Status{}, err
	}
	active := 0
	for _, a := range page.Agents {
		if a.Alive && !a.Inactive {
			active++
		}
	}

	entries, err := svc.repos.Honeypots.List(ctx)
	if err != nil {
		return Status{}, err
	}
	triggered := 0
	for _, e := range entries {
		if e.Triggered {
			triggered++
		}
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	st := Status{
		SnapshotVersion:     svc.snapshot.Version,
		ActiveAgents:        active,
		RegisteredAgents:    page.Total,
		LastSuccessfulRound: svc.lastGood,
		TriggeredHoneypots:  triggered,
	}
	if svc.current != nil {
		st.RoundID = svc.current.ID
		st.RoundState = svc.current.State
	}

	return st, nil
}

func (svc *service) AppendAlert(ctx context.Context, rec alert.Record) (alert.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	if err := svc.repos.Alerts.Append(ctx, rec); err != nil {
		return alert.Record{}, err
	}

	return rec, nil
}

func (svc *service) ListAlerts(ctx context.Context, limit uint64) ([]alert.Record, error) {
	if limit == 0 {
		limit = defLimit
	}

	return svc.repos.Alerts.List(ctx, limit)
}

func (svc *service) RegisterHoneypot(ctx context.Context, e honeypot.Entry) (honeypot.Entry, error) {
	if e.DecoyID == "" {
		e.DecoyID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	if err := svc.repos.Honeypots.Register(ctx, e); err != nil {
		return honeypot.Entry{}, err
	}

	return e, nil
}

func (svc *service) TriggerHoneypot(ctx context.Context, decoyID string) error {
	return svc.repos.Honeypots.Trigger(ctx, decoyID)
}

func (svc *service) ListHoneypots(ctx context.Context) ([]honeypot.Entry, error) {
	return svc.repos.Honeypots.List(ctx)
}

func (svc *service) Run(ctx context.Context) error {
	for {
		r, err := svc.OpenRound(ctx)
		if err != nil {
			if !errors.Is(err, errNoActiveAgents) {
				svc.logger.ErrorContext(ctx, "failed to open round", slog.Any("error", err))
			}
			if err := svc.sleep(ctx, svc.cfg.RoundInterval); err != nil {
				return err
			}

			continue
		}

		timer := time.NewTimer(time.Until(r.Deadline))
		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		case <-svc.submitted:
			timer.Stop()
		}

		if err := svc.CloseRound(ctx); err != nil {
			svc.logger.ErrorContext(ctx, "failed to close round",
				slog.Uint64("round_id", r.ID), slog.Any("error", err))
		}

		if err := svc.sleep(ctx, svc.cfg.RoundInterval); err != nil {
			return err
		}
	}
}

func (svc *service) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// closeCurrentLocked drives the open round through aggregation. The caller
// holds svc.mu.
func (svc *service) closeCurrentLocked(ctx context.Context) error {
	r := svc.current
	if r == nil || (r.State != round.Open && r.State != round.Aggregating) {
		return nil
	}

	r.State = round.Aggregating
	if err := svc.repos.Rounds.Update(ctx, *r); err != nil {
		return err
	}

	if !r.QuorumMet(svc.minQuorum(len(r.Expected))) {
		return svc.failRoundLocked(ctx, r, pkgerrors.ErrQuorumNotMet)
	}

	next, err := svc.aggregator.Aggregate(svc.snapshot, r.ID, r.Received)
	if err != nil {
		return svc.failRoundLocked(ctx, r, err)
	}

	if err := svc.repos.Snapshots.Save(ctx, next); err != nil {
		return err
	}

	r.State = round.Closed
	r.ClosedAt = time.Now().UTC()
	if err := svc.repos.Rounds.Update(ctx, *r); err != nil {
		return err
	}

	svc.snapshot = next
	svc.lastGood = r.ID
	svc.recordParticipation(ctx, r)

	svc.logger.InfoContext(ctx, "round closed",
		slog.Uint64("round_id", r.ID),
		slog.Uint64("snapshot_version", next.Version),
		slog.Int("participants", len(r.Received)))

	return nil
}

// failRoundLocked marks the round FAILED and keeps the previous snapshot as
// canonical. Failure is recorded, never silent.
func (svc *service) failRoundLocked(ctx context.Context, r *round.Round, cause error) error {
	r.State = round.Failed
	r.ClosedAt = time.Now().UTC()
	if err := svc.repos.Rounds.Update(ctx, *r); err != nil {
		return err
	}
	svc.recordParticipation(ctx, r)

	rec := alert.Record{
		ID:        uuid.NewString(),
		Category:  alert.CategoryDegradedRound,
		Timestamp: time.Now().UTC(),
		Severity:  alert.SeverityWarning,
		Description: fmt.Sprintf("round %d failed: %s (%d/%d submissions)",
			r.ID, cause, len(r.Received), len(r.Expected)),
	}
	if err := svc.repos.Alerts.Append(ctx, rec); err != nil {
		svc.logger.ErrorContext(ctx, "failed to append degraded-round alert",
			slog.Uint64("round_id", r.ID), slog.Any("error", err))
	}

	svc.logger.WarnContext(ctx, "round failed",
		slog.Uint64("round_id", r.ID),
		slog.String("cause", cause.Error()),
		slog.Int("received", len(r.Received)),
		slog.Int("expected", len(r.Expected)))

	return nil
}

// recordParticipation resets the miss counter for submitters and advances it
// for absentees, dropping agents that crossed the threshold.
func (svc *service) recordParticipation(ctx context.Context, r *round.Round) {
	for _, id := range r.Expected {
		a, err := svc.repos.Agents.Get(ctx, id)
		if err != nil {
			svc.logger.WarnContext(ctx, "failed to load agent for participation tracking",
				slog.String("agent_id", id), slog.Any("error", err))

			continue
		}

		if _, ok := r.Received[id]; ok {
			a.MissedRounds = 0
		} else {
			a.MissedRounds++
			if a.MissedRounds >= svc.cfg.DropoutThreshold {
				a.Inactive = true
				svc.logger.InfoContext(ctx, "agent dropped from expected set",
					slog.String("agent_id", id),
					slog.Int("missed_rounds", a.MissedRounds))
			}
		}

		if err := svc.repos.Agents.Update(ctx, a); err != nil {
			svc.logger.WarnContext(ctx, "failed to persist agent participation",
				slog.String("agent_id", id), slog.Any("error", err))
		}
	}
}

func (svc *service) expectedAgents(ctx context.Context) ([]string, error) {
	agents, _, err := svc.repos.Agents.List(ctx, defOffset, maxExpectedAgents)
	if err != nil {
		return nil, err
	}

	expected := make([]string, 0, len(agents))
	for _, a := range agents {
		if !a.Inactive {
			expected = append(expected, a.ID)
		}
	}

	return expected, nil
}

func (svc *service) minQuorum(expected int) int {
	if svc.cfg.MinQuorum > 0 {
		return svc.cfg.MinQuorum
	}

	return expected/2 + 1
}
