package api

import (
	"context"
	"errors"

	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"

	"github.com/fleetguard/fleetguard/coordinator"
	pkgerrors "github.com/fleetguard/fleetguard/pkg/errors"
)

func statusEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		st, err := svc.Status(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{Status: st}, nil
	}
}

func registerAgentEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(registerAgentReq)
		if !ok {
			return agentResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return agentResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		a, err := svc.RegisterAgent(ctx, req.Agent)
		if err != nil {
			return agentResponse{}, err
		}

		return agentResponse{
			Agent:   a,
			created: true,
		}, nil
	}
}

func getAgentEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return agentResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return agentResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		a, err := svc.GetAgent(ctx, req.id)
		if err != nil {
			return agentResponse{}, err
		}

		return agentResponse{Agent: a}, nil
	}
}

func listAgentsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listAgentsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listAgentsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListAgents(ctx, req.offset, req.limit)
		if err != nil {
			return listAgentsResponse{}, err
		}

		return listAgentsResponse{Page: page}, nil
	}
}

func getRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		r, err := svc.GetRound(ctx, req.id)
		if err != nil {
			return roundResponse{}, err
		}

		return roundResponse{Summary: r.Summary()}, nil
	}
}

func listRoundsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listRoundsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRoundsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListRounds(ctx, req.offset, req.limit)
		if err != nil {
			return listRoundsResponse{}, err
		}

		return listRoundsResponse{Page: page}, nil
	}
}

func submitUpdateEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(updateReq)
		if !ok {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.SubmitUpdate(ctx, req.Update); err != nil {
			return updateResponse{}, err
		}

		return updateResponse{accepted: true}, nil
	}
}

func submitUpdateCBOREndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(cborUpdateReq)
		if !ok {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.SubmitUpdateCBOR(ctx, req.data); err != nil {
			return updateResponse{}, err
		}

		return updateResponse{accepted: true}, nil
	}
}

func latestSnapshotEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		s, err := svc.LatestSnapshot(ctx)
		if err != nil {
			return snapshotResponse{}, err
		}

		return snapshotResponse{Snapshot: s}, nil
	}
}

func getSnapshotEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return snapshotResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return snapshotResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		s, err := svc.GetSnapshot(ctx, req.id)
		if err != nil {
			return snapshotResponse{}, err
		}

		return snapshotResponse{Snapshot: s}, nil
	}
}

func appendAlertEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(alertReq)
		if !ok {
			return alertResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return alertResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		rec, err := svc.AppendAlert(ctx, req.Record)
		if err != nil {
			return alertResponse{}, err
		}

		return alertResponse{
			Record:  rec,
			created: true,
		}, nil
	}
}

func listAlertsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(limitReq)
		if !ok {
			return listAlertsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listAlertsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		records, err := svc.ListAlerts(ctx, req.limit)
		if err != nil {
			return listAlertsResponse{}, err
		}

		return listAlertsResponse{Alerts: records}, nil
	}
}

func registerHoneypotEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(honeypotReq)
		if !ok {
			return honeypotResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return honeypotResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		e, err := svc.RegisterHoneypot(ctx, req.Entry)
		if err != nil {
			return honeypotResponse{}, err
		}

		return honeypotResponse{
			Entry:   e,
			created: true,
		}, nil
	}
}

func triggerHoneypotEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return honeypotResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return honeypotResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.TriggerHoneypot(ctx, req.id); err != nil {
			return honeypotResponse{}, err
		}

		return honeypotResponse{triggered: true}, nil
	}
}

func listHoneypotsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		entries, err := svc.ListHoneypots(ctx)
		if err != nil {
			return listHoneypotsResponse{}, err
		}

		return listHoneypotsResponse{Honeypots: entries}, nil
	}
}
