package round_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/round"
)

func TestNewRound(t *testing.T) {
	t.Parallel()

	opened := time.Now().UTC()
	r := round.New(5, []string{"agent-0", "agent-1"}, opened, 2*time.Minute)

	assert.Equal(t, uint64(5), r.ID)
	assert.Equal(t, round.Open, r.State)
	assert.Equal(t, opened.Add(2*time.Minute), r.Deadline)
	assert.True(t, r.IsExpected("agent-0"))
	assert.False(t, r.IsExpected("stranger"))
	assert.False(t, r.AllSubmitted())
}

func TestAllSubmitted(t *testing.T) {
	t.Parallel()

	r := round.New(1, []string{"agent-0", "agent-1"}, time.Now().UTC(), time.Minute)

	r.Received["agent-0"] = model.Update{AgentID: "agent-0"}
	assert.False(t, r.AllSubmitted())

	r.Received["agent-1"] = model.Update{AgentID: "agent-1"}
	assert.True(t, r.AllSubmitted())

	// An empty expected set never counts as fully submitted.
	empty := round.New(2, nil, time.Now().UTC(), time.Minute)
	assert.False(t, empty.AllSubmitted())
}

func TestQuorumMet(t *testing.T) {
	t.Parallel()

	r := round.New(1, []string{"agent-0", "agent-1", "agent-2"}, time.Now().UTC(), time.Minute)
	r.Received["agent-0"] = model.Update{AgentID: "agent-0"}

	assert.True(t, r.QuorumMet(1))
	assert.False(t, r.QuorumMet(2))
}

func TestSummaryOmitsUpdates(t *testing.T) {
	t.Parallel()

	r := round.New(1, []string{"agent-0"}, time.Now().UTC(), time.Minute)
	r.Received["agent-0"] = model.Update{AgentID: "agent-0", NumSamples: 100}
	r.State = round.Closed

	s := r.Summary()
	assert.Equal(t, uint64(1), s.ID)
	assert.Equal(t, round.Closed, s.State)
	assert.Equal(t, 1, s.Participants)

	// The dashboard view never carries raw update payloads.
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "received")
	assert.NotContains(t, string(data), "num_samples")
}

func TestStateJSONRoundTrip(t *testing.T) {
	t.Parallel()

	for _, state := range []round.State{round.Open, round.Aggregating, round.Closed, round.Failed} {
		data, err := json.Marshal(state)
		require.NoError(t, err)

		var decoded round.State
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, state, decoded)
	}

	data, err := json.Marshal(round.Closed)
	require.NoError(t, err)
	assert.Equal(t, `"closed"`, string(data))
}
