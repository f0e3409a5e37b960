package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/honeypot"
	"github.com/fleetguard/fleetguard/pkg/model"
)

func (svc *service) Subscribe(ctx context.Context) error {
	baseTopic := fmt.Sprintf("fleet/%s/messages/control/agent", svc.cfg.ChannelID)
	topic := baseTopic + "/#"

	return svc.pubsub.Subscribe(ctx, topic, svc.handle(ctx, baseTopic))
}

func (svc *service) handle(ctx context.Context, baseTopic string) func(topic string, msg map[string]any) error {
	return func(topic string, msg map[string]any) error {
		switch topic {
		case baseTopic + "/register":
			return svc.handleRegister(ctx, msg)
		case baseTopic + "/alive":
			return svc.handleLiveness(ctx, msg)
		case baseTopic + "/update":
			return svc.handleUpdate(ctx, msg)
		case baseTopic + "/alert":
			return svc.handleAlert(ctx, msg)
		case baseTopic + "/honeypot":
			return svc.handleHoneypot(ctx, msg)
		}

		return nil
	}
}

func (svc *service) handleRegister(ctx context.Context, msg map[string]any) error {
	var a agent.Agent
	if err := decode(msg, &a); err != nil {
		return err
	}

	if _, err := svc.RegisterAgent(ctx, a); err != nil {
		return err
	}

	svc.logger.InfoContext(ctx, "agent registered",
		slog.String("agent_id", a.ID),
		slog.String("organization", a.Organization))

	return nil
}

func (svc *service) handleLiveness(ctx context.Context, msg map[string]any) error {
	agentID, ok := msg["agent_id"].(string)
	if !ok || agentID == "" {
		return errors.New("invalid agent_id in liveness message")
	}

	// The broker's last-will message announces a dead connection.
	if status, ok := msg["status"].(string); ok && status == "offline" {
		svc.logger.InfoContext(ctx, "agent went offline", slog.String("agent_id", agentID))

		return svc.MarkOffline(ctx, agentID)
	}

	return svc.RecordHeartbeat(ctx, agentID, time.Now().UTC())
}

func (svc *service) handleUpdate(ctx context.Context, msg map[string]any) error {
	var u model.Update
	if err := decode(msg, &u); err != nil {
		return err
	}

	return svc.SubmitUpdate(ctx, u)
}

func (svc *service) handleAlert(ctx context.Context, msg map[string]any) error {
	var rec alert.Record
	if err := decode(msg, &rec); err != nil {
		return err
	}
	rec.Category = alert.CategoryBehavioral

	if _, err := svc.AppendAlert(ctx, rec); err != nil {
		return err
	}

	svc.logger.InfoContext(ctx, "behavioral alert received",
		slog.String("agent_id", rec.AgentID),
		slog.String("severity", rec.Severity.String()),
		slog.Float64("threat_score", rec.ThreatScore))

	return nil
}

func (svc *service) handleHoneypot(ctx context.Context, msg map[string]any) error {
	event, _ := msg["event"].(string)

	switch event {
	case "trigger":
		decoyID, ok := msg["decoy_id"].(string)
		if !ok || decoyID == "" {
			return errors.New("invalid decoy_id in honeypot trigger")
		}
		svc.logger.WarnContext(ctx, "honeypot triggered", slog.String("decoy_id", decoyID))

		return svc.TriggerHoneypot(ctx, decoyID)
	default:
		var e honeypot.Entry
		if err := decode(msg, &e); err != nil {
			return err
		}
		_, err := svc.RegisterHoneypot(ctx, e)

		return err
	}
}

func decode(msg map[string]any, out any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}
