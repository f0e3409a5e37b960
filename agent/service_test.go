package agent_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/pkg/feature"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/pkg/mqtt/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticTelemetry struct {
	ds feature.Dataset
}

func (s staticTelemetry) Next(context.Context) (feature.Vector, error) {
	return s.ds.Samples[0].Vector, nil
}

func (s staticTelemetry) Dataset(context.Context) (feature.Dataset, error) {
	return s.ds, nil
}

func testAgentConfig(t *testing.T) agent.Config {
	t.Helper()

	return agent.Config{
		BrokerURL:           "tcp://localhost:1883",
		AgentID:             "agent-0",
		ChannelID:           "fleet",
		Name:                "crimson-falcon",
		Organization:        "acme",
		SchemaVersion:       1,
		LivelinessInterval:  time.Hour,
		ScoreInterval:       time.Hour,
		SweepInterval:       time.Hour,
		HoneypotDir:         t.TempDir(),
		SuspiciousThreshold: 0.5,
		ConfirmThreshold:    0.7,
		ConfirmWindow:       3,
		CoolDownWindow:      5,
		LearningRate:        0.01,
		Epochs:              20,
	}
}

func testTelemetry() staticTelemetry {
	return staticTelemetry{ds: feature.Dataset{
		SchemaVersion: 1,
		Samples: []feature.Sample{
			sample(1, 2),
			sample(0, -2),
		},
	}}
}

func TestNewServiceAnnouncesItself(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := mocks.NewPubSub()
	_, err := agent.NewService(ctx, testAgentConfig(t), pubsub, testTelemetry(), discardLogger())
	require.NoError(t, err)

	registrations := pubsub.Published("fleet/fleet/messages/control/agent/register")
	require.Len(t, registrations, 1)

	data, err := json.Marshal(registrations[0])
	require.NoError(t, err)
	var reg struct {
		ID            string `json:"id"`
		Organization  string `json:"organization"`
		SchemaVersion int    `json:"schema_version"`
	}
	require.NoError(t, json.Unmarshal(data, &reg))
	assert.Equal(t, "agent-0", reg.ID)
	assert.Equal(t, "acme", reg.Organization)
	assert.Equal(t, 1, reg.SchemaVersion)

	// Every deployed decoy is announced to the coordinator.
	honeypots := pubsub.Published("fleet/fleet/messages/control/agent/honeypot")
	assert.NotEmpty(t, honeypots)
}

func TestRoundStartTriggersTraining(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := mocks.NewPubSub()
	svc, err := agent.NewService(ctx, testAgentConfig(t), pubsub, testTelemetry(), discardLogger())
	require.NoError(t, err)

	runDone := make(chan error, 1)
	go func() { runDone <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return pubsub.Publish(ctx, "fleet/fleet/messages/control/coordinator/round/start", map[string]any{
			"round_id": 1,
			"snapshot": model.Zero(1),
		}) == nil && len(pubsub.Published("fleet/fleet/messages/control/agent/update")) > 0
	}, 2*time.Second, 20*time.Millisecond)

	data, err := json.Marshal(pubsub.Published("fleet/fleet/messages/control/agent/update")[0])
	require.NoError(t, err)
	var u model.Update
	require.NoError(t, json.Unmarshal(data, &u))
	assert.Equal(t, "agent-0", u.AgentID)
	assert.Equal(t, uint64(1), u.RoundID)
	assert.Equal(t, 2, u.NumSamples)
	require.NoError(t, u.Validate())

	assert.Equal(t, uint64(0), svc.Snapshot().Version)

	cancel()
	require.NoError(t, <-runDone)
}
