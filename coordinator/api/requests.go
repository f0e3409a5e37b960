package api

import (
	apiutil "github.com/absmach/supermq/api/http/util"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/alert"
	"github.com/fleetguard/fleetguard/honeypot"
	"github.com/fleetguard/fleetguard/pkg/model"
)

type entityReq struct {
	id string
}

func (e *entityReq) validate() error {
	if e.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type roundReq struct {
	id uint64
}

func (r *roundReq) validate() error {
	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (e *listEntityReq) validate() error {
	return nil
}

type limitReq struct {
	limit uint64
}

func (l *limitReq) validate() error {
	return nil
}

type registerAgentReq struct {
	agent.Agent `json:",inline"`
}

func (r *registerAgentReq) validate() error {
	if r.ID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type updateReq struct {
	model.Update `json:",inline"`
}

func (u *updateReq) validate() error {
	if u.AgentID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type cborUpdateReq struct {
	data []byte
}

func (c *cborUpdateReq) validate() error {
	if len(c.data) == 0 {
		return apiutil.ErrValidation
	}

	return nil
}

type alertReq struct {
	alert.Record `json:",inline"`
}

func (a *alertReq) validate() error {
	if a.Category == "" {
		return apiutil.ErrMissingName
	}

	return nil
}

type honeypotReq struct {
	honeypot.Entry `json:",inline"`
}

func (h *honeypotReq) validate() error {
	if h.AgentID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}
