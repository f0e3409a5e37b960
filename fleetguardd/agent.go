package fleetguardd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/pkg/mqtt"
)

const (
	agentSvcName     = "agent"
	agentMQTTQoS     = 2
	agentMQTTTimeout = 30 * time.Second
)

type AgentConfig struct {
	LogLevel   string
	ConfigPath string
}

func StartAgent(ctx context.Context, cancel context.CancelFunc, cfg AgentConfig) error {
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

	agentCfg, err := agent.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load agent configuration: %s", err.Error())
	}

	telemetry, err := agent.NewFileTelemetry(agentCfg.DatasetPath)
	if err != nil {
		return fmt.Errorf("failed to load telemetry dataset: %s", err.Error())
	}

	mqttPubSub, err := mqtt.NewPubSub(agentCfg.BrokerURL, agentMQTTQoS, agentCfg.AgentID, agentCfg.AgentID, agentCfg.AgentKey, agentCfg.ChannelID, agentMQTTTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
	}
	defer func() {
		if err := mqttPubSub.Disconnect(context.Background()); err != nil {
			slog.Error("error disconnecting mqtt", slog.Any("error", err))
		}
	}()

	svc, err := agent.NewService(ctx, agentCfg, mqttPubSub, telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize agent service: %s", err.Error())
	}

	g.Go(func() error {
		return svc.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", agentSvcName, err))
	}
	cancel()

	return nil
}

var agentCmds = []cobra.Command{
	{
		Use:   "start",
		Short: "Start agent",
		Long:  `Start an endpoint agent from its TOML configuration file.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := AgentConfig{
				LogLevel:   "info",
				ConfigPath: "config.toml",
			}
			if len(cmd.Flags().Args()) > 0 {
				cfg.ConfigPath = cmd.Flags().Args()[0]
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			if err := StartAgent(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start agent: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewAgentCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "agent [start]",
		Short: "Agent management",
		Long:  `Run a FleetGuard endpoint agent.`,
	}

	for i := range agentCmds {
		cmd.AddCommand(&agentCmds[i])
	}

	return &cmd
}
