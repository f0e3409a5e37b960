package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/coordinator"
	"github.com/fleetguard/fleetguard/honeypot"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/round"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) RegisterAgent(ctx context.Context, a agent.Agent) (agent.Agent, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "register-agent").Add(1)
		mm.latency.With("method", "register-agent").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RegisterAgent(ctx, a)
}

func (mm *metricsMiddleware) GetAgent(ctx context.Context, agentID string) (agent.Agent, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-agent").Add(1)
		mm.latency.With("method", "get-agent").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetAgent(ctx, agentID)
}

func (mm *metricsMiddleware) ListAgents(ctx context.Context, offset, limit uint64) (agent.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-agents").Add(1)
		mm.latency.With("method", "list-agents").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListAgents(ctx, offset, limit)
}

func (mm *metricsMiddleware) RecordHeartbeat(ctx context.Context, agentID string, at time.Time) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "record-heartbeat").Add(1)
		mm.latency.With("method", "record-heartbeat").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RecordHeartbeat(ctx, agentID, at)
}

func (mm *metricsMiddleware) MarkOffline(ctx context.Context, agentID string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "mark-offline").Add(1)
		mm.latency.With("method", "mark-offline").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.MarkOffline(ctx, agentID)
}

func (mm *metricsMiddleware) OpenRound(ctx context.Context) (round.Round, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "open-round").Add(1)
		mm.latency.With("method", "open-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.OpenRound(ctx)
}

func (mm *metricsMiddleware) CloseRound(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "close-round").Add(1)
		mm.latency.With("method", "close-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CloseRound(ctx)
}

func (mm *metricsMiddleware) SubmitUpdate(ctx context.Context, u model.Update) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-update").Add(1)
		mm.latency.With("method", "submit-update").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitUpdate(ctx, u)
}

func (mm *metricsMiddleware) SubmitUpdateCBOR(ctx context.Context, data []byte) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-update-cbor").Add(1)
		mm.latency.With("method", "submit-update-cbor").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitUpdateCBOR(ctx, data)
}

func (mm *metricsMiddleware) GetRound(ctx context.Context, roundID uint64) (round.Round, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-round").Add(1)
		mm.latency.With("method", "get-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRound(ctx, roundID)
}

func (mm *metricsMiddleware) ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-rounds").Add(1)
		mm.latency.With("method", "list-rounds").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRounds(ctx, offset, limit)
}

func (mm *metricsMiddleware) LatestSnapshot(ctx context.Context) (model.Snapshot, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "latest-snapshot").Add(1)
		mm.latency.With("method", "latest-snapshot").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.LatestSnapshot(ctx)
}

func (mm *metricsMiddleware) GetSnapshot(ctx context.Context, version uint64) (model.Snapshot, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-snapshot").Add(1)
		mm.latency.With("method", "get-snapshot").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetSnapshot(ctx, version)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (coordinator.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}

func (mm *metricsMiddleware) AppendAlert(ctx context.Context, rec alert.Record) (alert.Record, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "append-alert").Add(1)
		mm.latency.With("method", "append-alert").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.AppendAlert(ctx, rec)
}

func (mm *metricsMiddleware) ListAlerts(ctx context.Context, limit uint64) ([]alert.Record, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-alerts").Add(1)
		mm.latency.With("method", "list-alerts").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListAlerts(ctx, limit)
}

func (mm *metricsMiddleware) RegisterHoneypot(ctx context.Context, e honeypot.Entry) (honeypot.Entry, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "register-honeypot").Add(1)
		mm.latency.With("method", "register-honeypot").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RegisterHoneypot(ctx, e)
}

func (mm *metricsMiddleware) TriggerHoneypot(ctx context.Context, decoyID string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "trigger-honeypot").Add(1)
		mm.latency.With("method", "trigger-honeypot").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.TriggerHoneypot(ctx, decoyID)
}

func (mm *metricsMiddleware) ListHoneypots(ctx context.Context) ([]honeypot.Entry, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-honeypots").Add(1)
		mm.latency.With("method", "list-honeypots").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListHoneypots(ctx)
}

func (mm *metricsMiddleware) Run(ctx context.Context) error {
	return mm.svc.Run(ctx)
}

func (mm *metricsMiddleware) Subscribe(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "subscribe").Add(1)
		mm.latency.With("method", "subscribe").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Subscribe(ctx)
}
