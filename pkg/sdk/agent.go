package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const agentsEndpoint = "/agents"

type Agent struct {
	ID            string      `json:"id"`
	Name          string      `json:"name,omitempty"`
	Organization  string      `json:"organization"`
	SchemaVersion int         `json:"schema_version"`
	Alive         bool        `json:"alive"`
	AliveHistory  []time.Time `json:"alive_history,omitempty"`
	MissedRounds  int         `json:"missed_rounds"`
	Inactive      bool        `json:"inactive"`
	RegisteredAt  time.Time   `json:"registered_at"`
}

type AgentPage struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Agents []Agent `json:"agents"`
}

func (sdk *fleetSDK) RegisterAgent(a Agent) (Agent, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return Agent{}, err
	}

	url := sdk.coordinatorURL + agentsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return Agent{}, err
	}

	var res Agent
	if err := json.Unmarshal(body, &res); err != nil {
		return Agent{}, err
	}

	return res, nil
}

func (sdk *fleetSDK) GetAgent(id string) (Agent, error) {
	url := sdk.coordinatorURL + agentsEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Agent{}, err
	}

	var res Agent
	if err := json.Unmarshal(body, &res); err != nil {
		return Agent{}, err
	}

	return res, nil
}

func (sdk *fleetSDK) ListAgents(offset, limit uint64) (AgentPage, error) {
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
	url := sdk.coordinatorURL + agentsEndpoint + query

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return AgentPage{}, err
	}

	var res AgentPage
	if err := json.Unmarshal(body, &res); err != nil {
		return AgentPage{}, err
	}

	return res, nil
}
