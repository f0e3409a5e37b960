package fl

import (
	"sort"

	"github.com/fleetguard/fleetguard/pkg/model"
)

// Aggregator merges accepted client updates into the next model snapshot.
type Aggregator interface {
	Aggregate(base model.Snapshot, roundID uint64, updates map[string]model.Update) (model.Snapshot, error)
}

// FedAvgAggregator implements federated averaging: each delta is weighted by
// sample_count / total_samples. Client data volumes differ sharply by
// organization size, so an unweighted mean would let a client with ten
// samples dominate one with ten thousand.
type FedAvgAggregator struct{}

func NewFedAvg() Aggregator {
	return &FedAvgAggregator{}
}

// Aggregate iterates updates in ascending agent-id order so that repeated
// runs over identical inputs are bit-reproducible.
func (f *FedAvgAggregator) Aggregate(base model.Snapshot, roundID uint64, updates map[string]model.Update) (model.Snapshot, error) {
	if len(updates) == 0 {
		return model.Snapshot{}, ErrNoUpdates
	}

	agentIDs := make([]string, 0, len(updates))
	totalSamples := 0
	for id, u := range updates {
		agentIDs = append(agentIDs, id)
		totalSamples += u.NumSamples
	}
	sort.Strings(agentIDs)

	if totalSamples == 0 {
		return model.Snapshot{}, ErrZeroSamples
	}

	deltaWeights := make([]float64, len(base.Weights))
	var deltaBias float64
	for _, id := range agentIDs {
		u := updates[id]
		weight := float64(u.NumSamples) / float64(totalSamples)
		for i, dw := range u.DeltaWeights {
			deltaWeights[i] += dw * weight
		}
		deltaBias += u.DeltaBias * weight
	}

	return base.Apply(roundID, deltaWeights, deltaBias), nil
}
