package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetguard/fleetguard/agent"
	"github.com/fleetguard/fleetguard/pkg/mqtt"
)

const (
	defConfigPath = "agent/config.toml"
	mqttQoS       = 2
	mqttTimeout   = 30 * time.Second
)

var (
	configPath string
	logLevel   slog.Level
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flag.StringVar(&configPath, "config", defConfigPath, "Path to the agent configuration file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := configureLogger("info")
	slog.SetDefault(logger)

	logger.Info("Starting agent service")

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	cfg, err := agent.LoadConfig(configPath)
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("path", configPath), slog.Any("error", err))

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	telemetry, err := agent.NewFileTelemetry(cfg.DatasetPath)
	if err != nil {
		logger.Error("Failed to load telemetry dataset", slog.String("path", cfg.DatasetPath), slog.Any("error", err))

		return fmt.Errorf("failed to load telemetry dataset: %w", err)
	}

	pubsub, err := mqtt.NewPubSub(cfg.BrokerURL, mqttQoS, cfg.AgentID, cfg.AgentID, cfg.AgentKey, cfg.ChannelID, mqttTimeout, logger)
	if err != nil {
		logger.Error("Failed to connect to broker", slog.String("url", cfg.BrokerURL), slog.Any("error", err))

		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer func() {
		if err := pubsub.Disconnect(context.Background()); err != nil {
			logger.Error("Error disconnecting from broker", slog.Any("error", err))
		}
	}()

	service, err := agent.NewService(ctx, cfg, pubsub, telemetry, logger)
	if err != nil {
		logger.Error("Error initializing service", slog.Any("error", err))

		return fmt.Errorf("service initialization error: %w", err)
	}

	if err := service.Run(ctx); err != nil {
		logger.Error("Error running service", slog.Any("error", err))

		return fmt.Errorf("service run error: %w", err)
	}

	return nil
}

func configureLogger(level string) *slog.Logger {
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		log.Printf("Invalid log level: %s. Defaulting to info.\n", level)
		logLevel = slog.LevelInfo
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(logHandler)
}
