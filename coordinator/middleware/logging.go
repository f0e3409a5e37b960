package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/coordinator"
	"github.com/fleetguard/fleetguard/honeypot"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/round"
)

var _ coordinator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) RegisterAgent(ctx context.Context, a agent.Agent) (resp agent.Agent, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("agent",
				slog.String("id", a.ID),
				slog.String("organization", a.Organization),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Register agent failed", args...)

			return
		}
		lm.logger.Info("Register agent completed successfully", args...)
	}(time.Now())

	return lm.svc.RegisterAgent(ctx, a)
}

func (lm *loggingMiddleware) GetAgent(ctx context.Context, agentID string) (resp agent.Agent, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("agent",
				slog.String("id", agentID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get agent failed", args...)

			return
		}
		lm.logger.Info("Get agent completed successfully", args...)
	}(time.Now())

	return lm.svc.GetAgent(ctx, agentID)
}

func (lm *loggingMiddleware) ListAgents(ctx context.Context, offset, limit uint64) (resp agent.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List agents failed", args...)

			return
		}
		lm.logger.Info("List agents completed successfully", args...)
	}(time.Now())

	return lm.svc.ListAgents(ctx, offset, limit)
}

func (lm *loggingMiddleware) RecordHeartbeat(ctx context.Context, agentID string, at time.Time) (err error) {
	defer func(begin time.Time) {
		if err != nil {
			lm.logger.Warn("Record heartbeat failed",
				slog.String("duration", time.Since(begin).String()),
				slog.String("agent_id", agentID),
				slog.Any("error", err))
		}
	}(time.Now())

	return lm.svc.RecordHeartbeat(ctx, agentID, at)
}

func (lm *loggingMiddleware) MarkOffline(ctx context.Context, agentID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("agent_id", agentID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Mark agent offline failed", args...)

			return
		}
		lm.logger.Info("Mark agent offline completed successfully", args...)
	}(time.Now())

	return lm.svc.MarkOffline(ctx, agentID)
}

func (lm *loggingMiddleware) OpenRound(ctx context.Context) (resp round.Round, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.Uint64("id", resp.ID),
				slog.Int("expected", len(resp.Expected)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Open round failed", args...)

			return
		}
		lm.logger.Info("Open round completed successfully", args...)
	}(time.Now())

	return lm.svc.OpenRound(ctx)
}

func (lm *loggingMiddleware) CloseRound(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Close round failed", args...)

			return
		}
		lm.logger.Info("Close round completed successfully", args...)
	}(time.Now())

	return lm.svc.CloseRound(ctx)
}

func (lm *loggingMiddleware) SubmitUpdate(ctx context.Context, u model.Update) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("update",
				slog.String("agent_id", u.AgentID),
				slog.Uint64("round_id", u.RoundID),
				slog.Int("num_samples", u.NumSamples),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit update failed", args...)

			return
		}
		lm.logger.Info("Submit update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdate(ctx, u)
}

func (lm *loggingMiddleware) SubmitUpdateCBOR(ctx context.Context, data []byte) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("payload_bytes", len(data)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit CBOR update failed", args...)

			return
		}
		lm.logger.Info("Submit CBOR update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdateCBOR(ctx, data)
}

func (lm *loggingMiddleware) GetRound(ctx context.Context, roundID uint64) (resp round.Round, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("round_id", roundID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get round failed", args...)

			return
		}
		lm.logger.Info("Get round completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRound(ctx, roundID)
}

func (lm *loggingMiddleware) ListRounds(ctx context.Context, offset, limit uint64) (resp round.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List rounds failed", args...)

			return
		}
		lm.logger.Info("List rounds completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRounds(ctx, offset, limit)
}

func (lm *loggingMiddleware) LatestSnapshot(ctx context.Context) (resp model.Snapshot, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("version", resp.Version),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get latest snapshot failed", args...)

			return
		}
		lm.logger.Info("Get latest snapshot completed successfully", args...)
	}(time.Now())

	return lm.svc.LatestSnapshot(ctx)
}

func (lm *loggingMiddleware) GetSnapshot(ctx context.Context, version uint64) (resp model.Snapshot, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("version", version),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get snapshot failed", args...)

			return
		}
		lm.logger.Info("Get snapshot completed successfully", args...)
	}(time.Now())

	return lm.svc.GetSnapshot(ctx, version)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (resp coordinator.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get status failed", args...)

			return
		}
		lm.logger.Info("Get status completed successfully", args...)
	}(time.Now())

	return lm.svc.Status(ctx)
}

func (lm *loggingMiddleware) AppendAlert(ctx context.Context, rec alert.Record) (resp alert.Record, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("alert",
				slog.String("category", rec.Category),
				slog.String("agent_id", rec.AgentID),
				slog.String("severity", rec.Severity.String()),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Append alert failed", args...)

			return
		}
		lm.logger.Info("Append alert completed successfully", args...)
	}(time.Now())

	return lm.svc.AppendAlert(ctx, rec)
}

func (lm *loggingMiddleware) ListAlerts(ctx context.Context, limit uint64) (resp []alert.Record, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List alerts failed", args...)

			return
		}
		lm.logger.Info("List alerts completed successfully", args...)
	}(time.Now())

	return lm.svc.ListAlerts(ctx, limit)
}

func (lm *loggingMiddleware) RegisterHoneypot(ctx context.Context, e honeypot.Entry) (resp honeypot.Entry, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("honeypot",
				slog.String("decoy_id", e.DecoyID),
				slog.String("agent_id", e.AgentID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Register honeypot failed", args...)

			return
		}
		lm.logger.Info("Register honeypot completed successfully", args...)
	}(time.Now())

	return lm.svc.RegisterHoneypot(ctx, e)
}

func (lm *loggingMiddleware) TriggerHoneypot(ctx context.Context, decoyID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("decoy_id", decoyID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Trigger honeypot failed", args...)

			return
		}
		lm.logger.Info("Trigger honeypot completed successfully", args...)
	}(time.Now())

	return lm.svc.TriggerHoneypot(ctx, decoyID)
}

func (lm *loggingMiddleware) ListHoneypots(ctx context.Context) (resp []honeypot.Entry, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List honeypots failed", args...)

			return
		}
		lm.logger.Info("List honeypots completed successfully", args...)
	}(time.Now())

	return lm.svc.ListHoneypots(ctx)
}

func (lm *loggingMiddleware) Run(ctx context.Context) error {
	return lm.svc.Run(ctx)
}

func (lm *loggingMiddleware) Subscribe(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Subscribe failed", args...)

			return
		}
		lm.logger.Info("Subscribe completed successfully", args...)
	}(time.Now())

	return lm.svc.Subscribe(ctx)
}
