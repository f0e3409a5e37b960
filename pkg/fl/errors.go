package fl

import (
	"errors"

	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
)

var (
	ErrNoUpdates = errors.New("no updates provided for aggregation")

	// ErrZeroSamples aliases the shared guard so callers can match either.
	ErrZeroSamples = pkgerrors.ErrZeroSamples
)
