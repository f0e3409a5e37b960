package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
	"github.com/fleetguard/fleetguard/pkg/feature"
)

// FileTelemetry replays a recorded dataset from disk, cycling through its
// vectors on every call to Next. It stands in for a live collector, which is
// deployment-specific and plugged in behind TelemetrySource.
type FileTelemetry struct {
	mu  sync.Mutex
	ds  feature.Dataset
	idx int
}

var _ TelemetrySource = (*FileTelemetry)(nil)

func NewFileTelemetry(path string) (*FileTelemetry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read dataset file '%s': %w", path, err)
	}

	var ds feature.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset file '%s': %w", path, err)
	}
	if len(ds.Samples) == 0 {
		return nil, pkgerrors.ErrInvalidData
	}

	return &FileTelemetry{ds: ds}, nil
}

func (f *FileTelemetry) Next(_ context.Context) (feature.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := f.ds.Samples[f.idx%len(f.ds.Samples)].Vector
	f.idx++
	v.Timestamp = time.Now().UTC()

	return v, nil
}

func (f *FileTelemetry) Dataset(_ context.Context) (feature.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	samples := make([]feature.Sample, len(f.ds.Samples))
	copy(samples, f.ds.Samples)

	return feature.Dataset{
		SchemaVersion: f.ds.SchemaVersion,
		Samples:       samples,
	}, nil
}
