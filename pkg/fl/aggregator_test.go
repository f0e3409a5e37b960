package fl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetguard/fleetguard/pkg/feature"
	"github.com/fleetguard/fleetguard/pkg/fl"
	"github.com/fleetguard/fleetguard/pkg/model"
)

func uniformUpdate(agentID string, delta float64, numSamples int) model.Update {
	weights := make([]float64, feature.Arity())
	for i := range weights {
		weights[i] = delta
	}

	return model.Update{
		AgentID:      agentID,
		DeltaWeights: weights,
		DeltaBias:    delta,
		NumSamples:   numSamples,
	}
}

func TestAggregateWeightedBySamples(t *testing.T) {
	t.Parallel()

	agg := fl.NewFedAvg()
	base := model.Zero(1)

	updates := map[string]model.Update{
		"agent-a": uniformUpdate("agent-a", 1.0, 100),
		"agent-b": uniformUpdate("agent-b", 2.0, 200),
		"agent-c": uniformUpdate("agent-c", 3.0, 700),
	}

	next, err := agg.Aggregate(base, 1, updates)
	require.NoError(t, err)

	// (100*1 + 200*2 + 700*3) / 1000 = 2.6
	for i, w := range next.Weights {
		assert.InDelta(t, 2.6, w, 1e-9, "weight %d", i)
	}
	assert.InDelta(t, 2.6, next.Bias, 1e-9)
	assert.Equal(t, uint64(1), next.Version)
	assert.Equal(t, base.SchemaVersion, next.SchemaVersion)
}

func TestAggregateEqualSamplesIsMean(t *testing.T) {
	t.Parallel()

	agg := fl.NewFedAvg()
	base := model.Zero(1)

	updates := map[string]model.Update{
		"agent-a": uniformUpdate("agent-a", 1.0, 50),
		"agent-b": uniformUpdate("agent-b", 3.0, 50),
	}

	next, err := agg.Aggregate(base, 2, updates)
	require.NoError(t, err)

	for _, w := range next.Weights {
		assert.InDelta(t, 2.0, w, 1e-9)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	t.Parallel()

	agg := fl.NewFedAvg()
	base := model.Zero(1)

	updates := map[string]model.Update{
		"agent-c": uniformUpdate("agent-c", 0.3, 31),
		"agent-a": uniformUpdate("agent-a", 0.1, 17),
		"agent-b": uniformUpdate("agent-b", 0.2, 23),
	}

	first, err := agg.Aggregate(base, 1, updates)
	require.NoError(t, err)

	for range 10 {
		next, err := agg.Aggregate(base, 1, updates)
		require.NoError(t, err)
		assert.Equal(t, first.Weights, next.Weights)
		assert.Equal(t, first.Bias, next.Bias)
	}
}

func TestAggregateAppliesDeltaToBase(t *testing.T) {
	t.Parallel()

	agg := fl.NewFedAvg()

	base := model.Zero(1)
	for i := range base.Weights {
		base.Weights[i] = 0.5
	}
	base.Bias = -0.25

	updates := map[string]model.Update{
		"agent-a": uniformUpdate("agent-a", 0.1, 10),
	}

	next, err := agg.Aggregate(base, 3, updates)
	require.NoError(t, err)

	for _, w := range next.Weights {
		assert.InDelta(t, 0.6, w, 1e-9)
	}
	assert.InDelta(t, -0.15, next.Bias, 1e-9)
}

func TestAggregateNoUpdates(t *testing.T) {
	t.Parallel()

	agg := fl.NewFedAvg()

	_, err := agg.Aggregate(model.Zero(1), 1, map[string]model.Update{})
	assert.ErrorIs(t, err, fl.ErrNoUpdates)
}

func TestAggregateZeroTotalSamples(t *testing.T) {
	t.Parallel()

	agg := fl.NewFedAvg()

	updates := map[string]model.Update{
		"agent-a": uniformUpdate("agent-a", 1.0, 0),
		"agent-b": uniformUpdate("agent-b", 2.0, 0),
	}

	_, err := agg.Aggregate(model.Zero(1), 1, updates)
	assert.ErrorIs(t, err, fl.ErrZeroSamples)
}
