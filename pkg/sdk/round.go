package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	roundsEndpoint    = "/rounds"
	snapshotsEndpoint = "/snapshots"
)

type Round struct {
	ID           uint64    `json:"id"`
	State        string    `json:"state"`
	Participants int       `json:"participants"`
	OpenedAt     time.Time `json:"opened_at"`
	ClosedAt     time.Time `json:"closed_at,omitempty"`
}

type RoundPage struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Rounds []Round `json:"rounds"`
}

type Snapshot struct {
	Version       uint64    `json:"version"`
	SchemaVersion int       `json:"schema_version"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
	CreatedAt     time.Time `json:"created_at"`
}

func (sdk *fleetSDK) GetRound(id uint64) (Round, error) {
	url := fmt.Sprintf("%s%s/%d", sdk.coordinatorURL, roundsEndpoint, id)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Round{}, err
	}

	var res Round
	if err := json.Unmarshal(body, &res); err != nil {
		return Round{}, err
	}

	return res, nil
}

func (sdk *fleetSDK) ListRounds(offset, limit uint64) (RoundPage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	query := ""
	if len(queries) > 0 {
		query = "?" + strings.Join(queries, "&")
	}
	url := sdk.coordinatorURL + roundsEndpoint + query

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return RoundPage{}, err
	}

	var res RoundPage
	if err := json.Unmarshal(body, &res); err != nil {
		return RoundPage{}, err
	}

	return res, nil
}

func (sdk *fleetSDK) LatestSnapshot() (Snapshot, error) {
	url := sdk.coordinatorURL + snapshotsEndpoint + "/latest"

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Snapshot{}, err
	}

	var res Snapshot
	if err := json.Unmarshal(body, &res); err != nil {
		return Snapshot{}, err
	}

	return res, nil
}

func (sdk *fleetSDK) GetSnapshot(version uint64) (Snapshot, error) {
	url := fmt.Sprintf("%s%s/%d", sdk.coordinatorURL, snapshotsEndpoint, version)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Snapshot{}, err
	}

	var res Snapshot
	if err := json.Unmarshal(body, &res); err != nil {
		return Snapshot{}, err
	}

	return res, nil
}
