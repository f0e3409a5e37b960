package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

const CTJSON string = "application/json"

type PageMetadata struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type SDK interface {
	// Status returns the coordinator's fleet-level status.
	//
	// example:
	//  status, _ := sdk.Status()
	//  fmt.Println(status)
	Status() (Status, error)

	// RegisterAgent registers a new endpoint agent.
	//
	// example:
	//  agent := sdk.Agent{
	//    ID: "b1d10738-c5d7-4ff1-8f4d-b9328ce6f040",
	//    Organization: "acme",
	//    SchemaVersion: 1,
	//  }
	//  agent, _ := sdk.RegisterAgent(agent)
	//  fmt.Println(agent)
	RegisterAgent(a Agent) (Agent, error)

	// GetAgent gets an agent by id.
	//
	// example:
	//  agent, _ := sdk.GetAgent("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(agent)
	GetAgent(id string) (Agent, error)

	// ListAgents lists registered agents.
	//
	// example:
	//  agentPage, _ := sdk.ListAgents(0, 10)
	//  fmt.Println(agentPage)
	ListAgents(offset uint64, limit uint64) (AgentPage, error)

	// GetRound gets a round summary by id.
	//
	// example:
	//  round, _ := sdk.GetRound(42)
	//  fmt.Println(round)
	GetRound(id uint64) (Round, error)

	// ListRounds lists round summaries.
	//
	// example:
	//  roundPage, _ := sdk.ListRounds(0, 10)
	//  fmt.Println(roundPage)
	ListRounds(offset uint64, limit uint64) (RoundPage, error)

	// LatestSnapshot returns the current global model snapshot.
	//
	// example:
	//  snapshot, _ := sdk.LatestSnapshot()
	//  fmt.Println(snapshot.Version)
	LatestSnapshot() (Snapshot, error)

	// GetSnapshot returns a snapshot by version.
	//
	// example:
	//  snapshot, _ := sdk.GetSnapshot(7)
	//  fmt.Println(snapshot)
	GetSnapshot(version uint64) (Snapshot, error)

	// ListAlerts returns the most recent alerts, newest first.
	//
	// example:
	//  alerts, _ := sdk.ListAlerts(20)
	//  fmt.Println(alerts)
	ListAlerts(limit uint64) ([]Alert, error)

	// ListHoneypots lists registered decoys across the fleet.
	//
	// example:
	//  honeypots, _ := sdk.ListHoneypots()
	//  fmt.Println(honeypots)
	ListHoneypots() ([]Honeypot, error)
}

type fleetSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &fleetSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *fleetSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
