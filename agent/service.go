package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fleetguard/fleetguard/pkg/feature"
	"github.com/fleetguard/fleetguard/pkg/model"
	pkgmqtt "github.com/fleetguard/fleetguard/pkg/mqtt"
)

var (
	registerTopicTemplate   = "fleet/%s/messages/control/agent/register"
	aliveTopicTemplate      = "fleet/%s/messages/control/agent/alive"
	updateTopicTemplate     = "fleet/%s/messages/control/agent/update"
	alertTopicTemplate      = "fleet/%s/messages/control/agent/alert"
	honeypotTopicTemplate   = "fleet/%s/messages/control/agent/honeypot"
	roundStartTopicTemplate = "fleet/%s/messages/control/coordinator/round/start"
)

// TelemetrySource supplies prepared feature vectors and the locally retained
// labeled dataset. Feature extraction itself lives behind this interface.
type TelemetrySource interface {
	Next(ctx context.Context) (feature.Vector, error)
	Dataset(ctx context.Context) (feature.Dataset, error)
}

// Service is the endpoint agent: it trains on round broadcasts, scores live
// telemetry on a fixed cadence, and watches its decoy files. Scoring runs
// independently of the round cycle.
type Service struct {
	cfg       Config
	pubsub    pkgmqtt.PubSub
	trainer   *Trainer
	scorer    *Scorer
	honeypots *HoneypotManager
	telemetry TelemetrySource
	logger    *slog.Logger

	mu       sync.Mutex
	snapshot model.Snapshot
}

func NewService(ctx context.Context, cfg Config, pubsub pkgmqtt.PubSub, telemetry TelemetrySource, logger *slog.Logger) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		pubsub: pubsub,
		trainer: NewTrainer(cfg.AgentID, cfg.LearningRate, cfg.Epochs),
		scorer: NewScorer(cfg.AgentID, ScorerConfig{
			SuspiciousThreshold: cfg.SuspiciousThreshold,
			ConfirmThreshold:    cfg.ConfirmThreshold,
			ConfirmWindow:       cfg.ConfirmWindow,
			CoolDownWindow:      cfg.CoolDownWindow,
		}),
		honeypots: NewHoneypotManager(cfg.AgentID, cfg.HoneypotDir),
		telemetry: telemetry,
		logger:    logger,
		snapshot:  model.Zero(cfg.SchemaVersion),
	}

	topic := fmt.Sprintf(registerTopicTemplate, cfg.ChannelID)
	payload := map[string]any{
		"id":             cfg.AgentID,
		"name":           cfg.Name,
		"organization":   cfg.Organization,
		"schema_version": cfg.SchemaVersion,
	}
	if err := pubsub.Publish(ctx, topic, payload); err != nil {
		return nil, errors.Join(errors.New("failed to publish registration"), err)
	}

	entries, err := s.honeypots.Deploy()
	if err != nil {
		return nil, errors.Join(errors.New("failed to deploy honeypots"), err)
	}
	hpTopic := fmt.Sprintf(honeypotTopicTemplate, cfg.ChannelID)
	for _, e := range entries {
		if err := pubsub.Publish(ctx, hpTopic, e); err != nil {
			logger.Warn("failed to register honeypot", slog.String("decoy_id", e.DecoyID), slog.Any("error", err))
		}
	}

	go s.startLivelinessUpdates(ctx)

	return s, nil
}

func (s *Service) startLivelinessUpdates(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.LivelinessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping liveliness updates")

			return
		case <-ticker.C:
			topic := fmt.Sprintf(aliveTopicTemplate, s.cfg.ChannelID)
			payload := map[string]any{
				"status":   "alive",
				"agent_id": s.cfg.AgentID,
			}

			if err := s.pubsub.Publish(ctx, topic, payload); err != nil {
				s.logger.Error("failed to publish liveliness message", slog.Any("error", err))
			}
		}
	}
}

func (s *Service) Run(ctx context.Context) error {
	topic := fmt.Sprintf(roundStartTopicTemplate, s.cfg.ChannelID)
	if err := s.pubsub.Subscribe(ctx, topic, s.handleRoundStart(ctx)); err != nil {
		return fmt.Errorf("failed to subscribe to round start topic: %w", err)
	}

	go s.startScoringLoop(ctx)
	go s.startSweepLoop(ctx)

	s.logger.Info("agent service is running",
		slog.String("agent_id", s.cfg.AgentID),
		slog.String("organization", s.cfg.Organization))
	<-ctx.Done()

	return nil
}

// Snapshot returns the agent's current copy of the global model.
func (s *Service) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot
}

func (s *Service) handleRoundStart(ctx context.Context) func(topic string, msg map[string]any) error {
	return func(_ string, msg map[string]any) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}

		var payload struct {
			RoundID  uint64         `json:"round_id"`
			Snapshot model.Snapshot `json:"snapshot"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}

		s.mu.Lock()
		s.snapshot = payload.Snapshot
		s.mu.Unlock()

		s.logger.Info("round started",
			slog.Uint64("round_id", payload.RoundID),
			slog.Uint64("snapshot_version", payload.Snapshot.Version))

		go s.train(ctx, payload.RoundID, payload.Snapshot)

		return nil
	}
}

func (s *Service) train(ctx context.Context, roundID uint64, snapshot model.Snapshot) {
	ds, err := s.telemetry.Dataset(ctx)
	if err != nil {
		s.logger.Error("failed to load training dataset", slog.Any("error", err))

		return
	}

	update, err := s.trainer.Train(snapshot, ds)
	if err != nil {
		s.logger.Error("training failed",
			slog.Uint64("round_id", roundID), slog.Any("error", err))

		return
	}
	update.RoundID = roundID

	topic := fmt.Sprintf(updateTopicTemplate, s.cfg.ChannelID)
	if err := s.pubsub.Publish(ctx, topic, update); err != nil {
		s.logger.Error("failed to submit update",
			slog.Uint64("round_id", roundID), slog.Any("error", err))

		return
	}

	s.logger.Info("update submitted",
		slog.Uint64("round_id", roundID),
		slog.Int("num_samples", update.NumSamples))
}

func (s *Service) startScoringLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ScoreInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v, err := s.telemetry.Next(ctx)
			if err != nil {
				continue
			}

			rec, err := s.scorer.Observe(s.Snapshot(), v)
			if err != nil {
				// Malformed telemetry is skipped; the loop keeps going.
				s.logger.Warn("skipping telemetry sample", slog.Any("error", err))

				continue
			}
			if rec == nil {
				continue
			}

			s.publishAlert(ctx, rec)
		}
	}
}

func (s *Service) startSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, e := range s.honeypots.Sweep() {
				s.logger.Warn("honeypot decoy touched",
					slog.String("decoy_id", e.DecoyID),
					slog.String("path", e.Path))

				topic := fmt.Sprintf(honeypotTopicTemplate, s.cfg.ChannelID)
				payload := map[string]any{
					"event":    "trigger",
					"decoy_id": e.DecoyID,
					"agent_id": s.cfg.AgentID,
				}
				if err := s.pubsub.Publish(ctx, topic, payload); err != nil {
					s.logger.Error("failed to report honeypot trigger", slog.Any("error", err))
				}

				if rec := s.scorer.Mitigate("honeypot decoy touched: "+e.Path, Playbook[0]); rec != nil {
					s.publishAlert(ctx, rec)
				}
			}
		}
	}
}

func (s *Service) publishAlert(ctx context.Context, rec any) {
	topic := fmt.Sprintf(alertTopicTemplate, s.cfg.ChannelID)
	if err := s.pubsub.Publish(ctx, topic, rec); err != nil {
		s.logger.Error("failed to publish alert", slog.Any("error", err))
	}
}
