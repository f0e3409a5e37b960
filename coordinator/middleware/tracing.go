package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/coordinator"
	"github.com/fleetguard/fleetguard/honeypot"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/round"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) RegisterAgent(ctx context.Context, a agent.Agent) (agent.Agent, error) {
	ctx, span := tm.tracer.Start(ctx, "register-agent", trace.WithAttributes(
		attribute.String("agent_id", a.ID),
		attribute.String("organization", a.Organization),
	))
	defer span.End()

	return tm.svc.RegisterAgent(ctx, a)
}

func (tm *tracing) GetAgent(ctx context.Context, agentID string) (agent.Agent, error) {
	ctx, span := tm.tracer.Start(ctx, "get-agent", trace.WithAttributes(
		attribute.String("agent_id", agentID),
	))
	defer span.End()

	return tm.svc.GetAgent(ctx, agentID)
}

func (tm *tracing) ListAgents(ctx context.Context, offset, limit uint64) (agent.Page, error) {
	ctx, span := tm.tracer.Start(ctx, "list-agents", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListAgents(ctx, offset, limit)
}

func (tm *tracing) RecordHeartbeat(ctx context.Context, agentID string, at time.Time) error {
	ctx, span := tm.tracer.Start(ctx, "record-heartbeat", trace.WithAttributes(
		attribute.String("agent_id", agentID),
	))
	defer span.End()

	return tm.svc.RecordHeartbeat(ctx, agentID, at)
}

func (tm *tracing) MarkOffline(ctx context.Context, agentID string) error {
	ctx, span := tm.tracer.Start(ctx, "mark-offline", trace.WithAttributes(
		attribute.String("agent_id", agentID),
	))
	defer span.End()

	return tm.svc.MarkOffline(ctx, agentID)
}

func (tm *tracing) OpenRound(ctx context.Context) (round.Round, error) {
	ctx, span := tm.tracer.Start(ctx, "open-round")
	defer span.End()

	return tm.svc.OpenRound(ctx)
}

func (tm *tracing) CloseRound(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "close-round")
	defer span.End()

	return tm.svc.CloseRound(ctx)
}

func (tm *tracing) SubmitUpdate(ctx context.Context, u model.Update) error {
	ctx, span := tm.tracer.Start(ctx, "submit-update", trace.WithAttributes(
		attribute.String("agent_id", u.AgentID),
		attribute.Int64("round_id", int64(u.RoundID)),
	))
	defer span.End()

	return tm.svc.SubmitUpdate(ctx, u)
}

func (tm *tracing) SubmitUpdateCBOR(ctx context.Context, data []byte) error {
	ctx, span := tm.tracer.Start(ctx, "submit-update-cbor", trace.WithAttributes(
		attribute.Int("payload_bytes", len(data)),
	))
	defer span.End()

	return tm.svc.SubmitUpdateCBOR(ctx, data)
}

func (tm *tracing) GetRound(ctx context.Context, roundID uint64) (round.Round, error) {
	ctx, span := tm.tracer.Start(ctx, "get-round", trace.WithAttributes(
		attribute.Int64("round_id", int64(roundID)),
	))
	defer span.End()

	return tm.svc.GetRound(ctx, roundID)
}

func (tm *tracing) ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error) {
	ctx, span := tm.tracer.Start(ctx, "list-rounds", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRounds(ctx, offset, limit)
}

func (tm *tracing) LatestSnapshot(ctx context.Context) (model.Snapshot, error) {
	ctx, span := tm.tracer.Start(ctx, "latest-snapshot")
	defer span.End()

	return tm.svc.LatestSnapshot(ctx)
}

func (tm *tracing) GetSnapshot(ctx context.Context, version uint64) (model.Snapshot, error) {
	ctx, span := tm.tracer.Start(ctx, "get-snapshot", trace.WithAttributes(
		attribute.Int64("version", int64(version)),
	))
	defer span.End()

	return tm.svc.GetSnapshot(ctx, version)
}

func (tm *tracing) Status(ctx context.Context) (coordinator.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}

func (tm *tracing) AppendAlert(ctx context.Context, rec alert.Record) (alert.Record, error) {
	ctx, span := tm.tracer.Start(ctx, "append-alert", trace.WithAttributes(
		attribute.String("category", rec.Category),
		attribute.String("agent_id", rec.AgentID),
	))
	defer span.End()

	return tm.svc.AppendAlert(ctx, rec)
}

func (tm *tracing) ListAlerts(ctx context.Context, limit uint64) ([]alert.Record, error) {
	ctx, span := tm.tracer.Start(ctx, "list-alerts", trace.WithAttributes(
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListAlerts(ctx, limit)
}

func (tm *tracing) RegisterHoneypot(ctx context.Context, e honeypot.Entry) (honeypot.Entry, error) {
	ctx, span := tm.tracer.Start(ctx, "register-honeypot", trace.WithAttributes(
		attribute.String("decoy_id", e.DecoyID),
		attribute.String("agent_id", e.AgentID),
	))
	defer span.End()

	return tm.svc.RegisterHoneypot(ctx, e)
}

func (tm *tracing) TriggerHoneypot(ctx context.Context, decoyID string) error {
	ctx, span := tm.tracer.Start(ctx, "trigger-honeypot", trace.WithAttributes(
		attribute.String("decoy_id", decoyID),
	))
	defer span.End()

	return tm.svc.TriggerHoneypot(ctx, decoyID)
}

func (tm *tracing) ListHoneypots(ctx context.Context) ([]honeypot.Entry, error) {
	ctx, span := tm.tracer.Start(ctx, "list-honeypots")
	defer span.End()

	return tm.svc.ListHoneypots(ctx)
}

func (tm *tracing) Run(ctx context.Context) error {
	return tm.svc.Run(ctx)
}

func (tm *tracing) Subscribe(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "subscribe")
	defer span.End()

	return tm.svc.Subscribe(ctx)
}
