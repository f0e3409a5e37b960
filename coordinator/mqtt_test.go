package coordinator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/round"
)

const (
	registerTopic = "fleet/fleet/messages/control/agent/register"
	aliveTopic    = "fleet/fleet/messages/control/agent/alive"
	updateTopic   = "fleet/fleet/messages/control/agent/update"
	alertTopic    = "fleet/fleet/messages/control/agent/alert"
	honeypotTopic = "fleet/fleet/messages/control/agent/honeypot"
)

func TestSubscribeRegisterFlow(t *testing.T) {
	t.Parallel()

	svc, pubsub := newTestService(t, testConfig(), memoryRepos())
	ctx := context.Background()
	require.NoError(t, svc.Subscribe(ctx))

	err := pubsub.Publish(ctx, registerTopic, map[string]any{
		"id":             "agent-0",
		"name":           "crimson-falcon",
		"organization":   "acme",
		"schema_version": 1,
	})
	require.NoError(t, err)

	a, err := svc.GetAgent(ctx, "agent-0")
	require.NoError(t, err)
	assert.Equal(t, "acme", a.Organization)

	// A schema the coordinator does not speak is rejected at the door.
	err = pubsub.Publish(ctx, registerTopic, map[string]any{
		"id":             "agent-1",
		"organization":   "acme",
		"schema_version": 9,
	})
	assert.Error(t, err)
}

func TestSubscribeLivenessFlow(t *testing.T) {
	t.Parallel()

	svc, pubsub := newTestService(t, testConfig(), memoryRepos())
	ctx := context.Background()
	require.NoError(t, svc.Subscribe(ctx))
	ids := registerAgents(t, svc, 1)

	require.NoError(t, pubsub.Publish(ctx, aliveTopic, map[string]any{
		"status":   "alive",
		"agent_id": ids[0],
	}))

	a, err := svc.GetAgent(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, a.Alive)

	// The last-will message marks the agent offline.
	require.NoError(t, pubsub.Publish(ctx, aliveTopic, map[string]any{
		"status":   "offline",
		"agent_id": ids[0],
	}))

	err = pubsub.Publish(ctx, aliveTopic, map[string]any{"status": "alive"})
	assert.Error(t, err)
}

func TestSubscribeUpdateFlow(t *testing.T) {
	t.Parallel()

	svc, pubsub := newTestService(t, testConfig(), memoryRepos())
	ctx := context.Background()
	require.NoError(t, svc.Subscribe(ctx))
	ids := registerAgents(t, svc, 1)

	r, err := svc.OpenRound(ctx)
	require.NoError(t, err)

	require.NoError(t, pubsub.Publish(ctx, updateTopic, update(ids[0], r.ID, 0, 1, 10)))
	require.NoError(t, svc.CloseRound(ctx))

	got, err := svc.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Closed, got.State)
}

func TestSubscribeAlertFlow(t *testing.T) {
	t.Parallel()

	svc, pubsub := newTestService(t, testConfig(), memoryRepos())
	ctx := context.Background()
	require.NoError(t, svc.Subscribe(ctx))

	require.NoError(t, pubsub.Publish(ctx, alertTopic, map[string]any{
		"agent_id":     "agent-0",
		"threat_score": 0.82,
		"severity":     "high",
		"transition":   "suspicious->confirmed",
	}))

	alerts, err := svc.ListAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.CategoryBehavioral, alerts[0].Category)
	assert.Equal(t, alert.SeverityHigh, alerts[0].Severity)
	assert.NotEmpty(t, alerts[0].ID)
}

func TestSubscribeHoneypotFlow(t *testing.T) {
	t.Parallel()

	svc, pubsub := newTestService(t, testConfig(), memoryRepos())
	ctx := context.Background()
	require.NoError(t, svc.Subscribe(ctx))

	require.NoError(t, pubsub.Publish(ctx, honeypotTopic, map[string]any{
		"decoy_id": "decoy-0",
		"agent_id": "agent-0",
		"path":     "/tmp/passwords.txt",
	}))

	entries, err := svc.ListHoneypots(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Triggered)

	require.NoError(t, pubsub.Publish(ctx, honeypotTopic, map[string]any{
		"event":    "trigger",
		"decoy_id": "decoy-0",
		"agent_id": "agent-0",
	}))

	entries, err = svc.ListHoneypots(ctx)
	require.NoError(t, err)
	assert.True(t, entries[0].Triggered)
}
