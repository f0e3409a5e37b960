package api

import (
	"fmt"
	"net/http"

	"github.com/absmach/supermq"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/coordinator"
	"github.com/fleetguard/fleetguard/honeypot"
	"github.com/fleetguard/fleetguard/pkg/model"
	"github.com/fleetguard/fleetguard/round"
)

var (
	_ supermq.Response = (*statusResponse)(nil)
	_ supermq.Response = (*agentResponse)(nil)
	_ supermq.Response = (*listAgentsResponse)(nil)
	_ supermq.Response = (*roundResponse)(nil)
	_ supermq.Response = (*listRoundsResponse)(nil)
	_ supermq.Response = (*snapshotResponse)(nil)
	_ supermq.Response = (*updateResponse)(nil)
	_ supermq.Response = (*alertResponse)(nil)
	_ supermq.Response = (*listAlertsResponse)(nil)
	_ supermq.Response = (*honeypotResponse)(nil)
	_ supermq.Response = (*listHoneypotsResponse)(nil)
)

type statusResponse struct {
	coordinator.Status
}

func (s statusResponse) Code() int {
	return http.StatusOK
}

func (s statusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s statusResponse) Empty() bool {
	return false
}

type agentResponse struct {
	agent.Agent
	created bool
}

func (a agentResponse) Code() int {
	if a.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (a agentResponse) Headers() map[string]string {
	if a.created {
		return map[string]string{
			"Location": "/agents/" + a.ID,
		}
	}

	return map[string]string{}
}

func (a agentResponse) Empty() bool {
	return false
}

type listAgentsResponse struct {
	agent.Page
}

func (l listAgentsResponse) Code() int {
	return http.StatusOK
}

func (l listAgentsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listAgentsResponse) Empty() bool {
	return false
}

type roundResponse struct {
	round.Summary
}

func (r roundResponse) Code() int {
	return http.StatusOK
}

func (r roundResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r roundResponse) Empty() bool {
	return false
}

type listRoundsResponse struct {
	round.Page
}

func (l listRoundsResponse) Code() int {
	return http.StatusOK
}

func (l listRoundsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listRoundsResponse) Empty() bool {
	return false
}

type snapshotResponse struct {
	model.Snapshot
}

func (s snapshotResponse) Code() int {
	return http.StatusOK
}

func (s snapshotResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s snapshotResponse) Empty() bool {
	return false
}

type updateResponse struct {
	accepted bool
}

func (u updateResponse) Code() int {
	return http.StatusAccepted
}

func (u updateResponse) Headers() map[string]string {
	return map[string]string{}
}

func (u updateResponse) Empty() bool {
	return true
}

type alertResponse struct {
	alert.Record
	created bool
}

func (a alertResponse) Code() int {
	if a.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (a alertResponse) Headers() map[string]string {
	if a.created {
		return map[string]string{
			"Location": "/alerts/" + a.ID,
		}
	}

	return map[string]string{}
}

func (a alertResponse) Empty() bool {
	return false
}

type listAlertsResponse struct {
	Alerts []alert.Record `json:"alerts"`
}

func (l listAlertsResponse) Code() int {
	return http.StatusOK
}

func (l listAlertsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listAlertsResponse) Empty() bool {
	return false
}

type honeypotResponse struct {
	honeypot.Entry
	created   bool
	triggered bool
}

func (h honeypotResponse) Code() int {
	if h.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (h honeypotResponse) Headers() map[string]string {
	if h.created {
		return map[string]string{
			"Location": fmt.Sprintf("/honeypots/%s", h.DecoyID),
		}
	}

	return map[string]string{}
}

func (h honeypotResponse) Empty() bool {
	return h.triggered
}

type listHoneypotsResponse struct {
	Honeypots []honeypot.Entry `json:"honeypots"`
}

func (l listHoneypotsResponse) Code() int {
	return http.StatusOK
}

func (l listHoneypotsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listHoneypotsResponse) Empty() bool {
	return false
}
