package fleetguardd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/fleetguard/fleetguard/coordinator"
	"github.com/fleetguard/fleetguard/coordinator/api"
	"github.com/fleetguard/fleetguard/coordinator/middleware"
	"github.com/fleetguard/fleetguard/pkg/fl"
	"github.com/fleetguard/fleetguard/pkg/mqtt"
	"github.com/fleetguard/fleetguard/pkg/storage"
)

const coordinatorSvcName = "coordinator"

type CoordinatorConfig struct {
	LogLevel    string
	InstanceID  string
	MQTTAddress string
	MQTTQoS     uint8
	MQTTTimeout time.Duration
	ClientID    string
	ClientKey   string
	Coordinator coordinator.Config
	Storage     storage.Config
	Server      server.Config
	OTELURL     url.URL
	TraceRatio  float64
}

func StartCoordinator(ctx context.Context, cancel context.CancelFunc, cfg CoordinatorConfig) error {
	g, ctx := errgroup.WithContext(ctx)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, coordinatorSvcName, cfg.OTELURL, "", cfg.TraceRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize opentelemetry: %s", err.Error())
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				slog.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(coordinatorSvcName)

	repos, err := storage.NewRepositories(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %s", err.Error())
	}
	if repos.Closer != nil {
		defer func() {
			if err := repos.Closer.Close(); err != nil {
				slog.Error("error closing storage", slog.Any("error", err))
			}
		}()
	}

	mqttPubSub, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, coordinatorSvcName, cfg.ClientID, cfg.ClientKey, cfg.Coordinator.ChannelID, cfg.MQTTTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
	}
	defer func() {
		if err := mqttPubSub.Disconnect(context.Background()); err != nil {
			slog.Error("error disconnecting mqtt", slog.Any("error", err))
		}
	}()

	svc, err := coordinator.NewService(ctx, cfg.Coordinator, repos, fl.NewFedAvg(), mqttPubSub, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize coordinator service: %s", err.Error())
	}
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(coordinatorSvcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if err := svc.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to fleet channel: %s", err.Error())
	}

	hs := httpserver.NewServer(ctx, cancel, coordinatorSvcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return svc.Run(ctx)
	})

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, coordinatorSvcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", coordinatorSvcName, err))
	}

	return nil
}

var coordinatorCmds = []cobra.Command{
	{
		Use:   "start",
		Short: "Start coordinator",
		Long:  `Start the round coordinator with default configuration.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := CoordinatorConfig{
				LogLevel:    "info",
				MQTTAddress: "tcp://localhost:1883",
				MQTTQoS:     2,
				MQTTTimeout: 30 * time.Second,
				Coordinator: coordinator.Config{
					ChannelID:        "fleet",
					SchemaVersion:    1,
					RoundTimeout:     2 * time.Minute,
					RoundInterval:    30 * time.Second,
					DropoutThreshold: 3,
				},
				Storage: storage.Config{Type: "memory"},
				Server: server.Config{
					Port: "8080",
				},
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			if err := StartCoordinator(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start coordinator: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewCoordinatorCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "coordinator [start]",
		Short: "Coordinator management",
		Long:  `Run the FleetGuard round coordinator.`,
	}

	for i := range coordinatorCmds {
		cmd.AddCommand(&coordinatorCmds[i])
	}

	return &cmd
}
