package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	statusEndpoint    = "/status"
	alertsEndpoint    = "/alerts"
	honeypotsEndpoint = "/honeypots"
)

type Status struct {
	SnapshotVersion     uint64 `json:"snapshot_version"`
	RoundID             uint64 `json:"round_id"`
	RoundState          string `json:"round_state"`
	ActiveAgents        int    `json:"active_agents"`
	RegisteredAgents    uint64 `json:"registered_agents"`
	LastSuccessfulRound uint64 `json:"last_successful_round"`
	TriggeredHoneypots  int    `json:"triggered_honeypots"`
}

type Alert struct {
	ID               string    `json:"id"`
	Category         string    `json:"category"`
	AgentID          string    `json:"agent_id"`
	Timestamp        time.Time `json:"timestamp"`
	ThreatScore      float64   `json:"threat_score"`
	Severity         string    `json:"severity"`
	Transition       string    `json:"transition,omitempty"`
	MitigationAction string    `json:"mitigation_action,omitempty"`
	Description      string    `json:"description,omitempty"`
}

type Honeypot struct {
	DecoyID     string    `json:"decoy_id"`
	AgentID     string    `json:"agent_id"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"created_at"`
	Triggered   bool      `json:"triggered"`
	TriggeredAt time.Time `json:"triggered_at,omitempty"`
}

func (sdk *fleetSDK) Status() (Status, error) {
	url := sdk.coordinatorURL + statusEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Status{}, err
	}

	var res Status
	if err := json.Unmarshal(body, &res); err != nil {
		return Status{}, err
	}

	return res, nil
}

func (sdk *fleetSDK) ListAlerts(limit uint64) ([]Alert, error) {
	url := sdk.coordinatorURL + alertsEndpoint
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var res struct {
		Alerts []Alert `json:"alerts"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}

	return res.Alerts, nil
}

func (sdk *fleetSDK) ListHoneypots() ([]Honeypot, error) {
	url := sdk.coordinatorURL + honeypotsEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var res struct {
		Honeypots []Honeypot `json:"honeypots"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}

	return res.Honeypots, nil
}
