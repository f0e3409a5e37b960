package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fleetguard/fleetguard/coordinator"
	"github.com/fleetguard/fleetguard/pkg/api"
)

const maxUpdateSize = 1024 * 1024

func MakeHandler(svc coordinator.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)

	mux.Route("/agents", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			registerAgentEndpoint(svc),
			decodeRegisterAgentReq,
			api.EncodeResponse,
			opts...,
		), "register-agent").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listAgentsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-agents").ServeHTTP)
		r.Get("/{agentID}", otelhttp.NewHandler(kithttp.NewServer(
			getAgentEndpoint(svc),
			decodeEntityReq("agentID"),
			api.EncodeResponse,
			opts...,
		), "get-agent").ServeHTTP)
	})

	mux.Route("/rounds", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRoundsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-rounds").ServeHTTP)
		r.Get("/{roundID}", otelhttp.NewHandler(kithttp.NewServer(
			getRoundEndpoint(svc),
			decodeRoundReq("roundID"),
			api.EncodeResponse,
			opts...,
		), "get-round").ServeHTTP)
	})

	mux.Route("/updates", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			submitUpdateEndpoint(svc),
			decodeUpdateReq,
			api.EncodeResponse,
			opts...,
		), "submit-update").ServeHTTP)
		r.Post("/cbor", otelhttp.NewHandler(kithttp.NewServer(
			submitUpdateCBOREndpoint(svc),
			decodeCBORUpdateReq,
			api.EncodeResponse,
			opts...,
		), "submit-update-cbor").ServeHTTP)
	})

	mux.Route("/snapshots", func(r chi.Router) {
		r.Get("/latest", otelhttp.NewHandler(kithttp.NewServer(
			latestSnapshotEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "latest-snapshot").ServeHTTP)
		r.Get("/{version}", otelhttp.NewHandler(kithttp.NewServer(
			getSnapshotEndpoint(svc),
			decodeRoundReq("version"),
			api.EncodeResponse,
			opts...,
		), "get-snapshot").ServeHTTP)
	})

	mux.Route("/alerts", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			appendAlertEndpoint(svc),
			decodeAlertReq,
			api.EncodeResponse,
			opts...,
		), "append-alert").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listAlertsEndpoint(svc),
			decodeLimitReq,
			api.EncodeResponse,
			opts...,
		), "list-alerts").ServeHTTP)
	})

	mux.Route("/honeypots", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			registerHoneypotEndpoint(svc),
			decodeHoneypotReq,
			api.EncodeResponse,
			opts...,
		), "register-honeypot").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listHoneypotsEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "list-honeypots").ServeHTTP)
		r.Post("/{decoyID}/trigger", otelhttp.NewHandler(kithttp.NewServer(
			triggerHoneypotEndpoint(svc),
			decodeEntityReq("decoyID"),
			api.EncodeResponse,
			opts...,
		), "trigger-honeypot").ServeHTTP)
	})

	mux.Get("/health", supermq.Health("coordinator", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return nil, nil
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeRoundReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		id, err := strconv.ParseUint(chi.URLParam(r, key), 10, 64)
		if err != nil {
			return nil, errors.Join(apiutil.ErrValidation, err)
		}

		return roundReq{id: id}, nil
	}
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listEntityReq{
		offset: o,
		limit:  l,
	}, nil
}

func decodeLimitReq(_ context.Context, r *http.Request) (any, error) {
	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return limitReq{limit: l}, nil
}

func decodeRegisterAgentReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req registerAgentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeUpdateReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeCBORUpdateReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentTypeCBOR) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateSize))
	if err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return cborUpdateReq{data: data}, nil
}

func decodeAlertReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req alertReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeHoneypotReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req honeypotReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}
