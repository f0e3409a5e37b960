package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/server"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/fleetguard/fleetguard/coordinator"
	"github.com/fleetguard/fleetguard/fleetguardd"
	"github.com/fleetguard/fleetguard/pkg/storage"
)

const (
	defHTTPPort   = "8080"
	envPrefix     = "COORDINATOR_"
	envPrefixHTTP = "COORDINATOR_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel    string        `env:"COORDINATOR_LOG_LEVEL"    envDefault:"info"`
	InstanceID  string        `env:"COORDINATOR_INSTANCE_ID"`
	MQTTAddress string        `env:"COORDINATOR_MQTT_ADDRESS" envDefault:"tcp://localhost:1883"`
	MQTTQoS     uint8         `env:"COORDINATOR_MQTT_QOS"     envDefault:"2"`
	MQTTTimeout time.Duration `env:"COORDINATOR_MQTT_TIMEOUT" envDefault:"30s"`
	ClientID    string        `env:"COORDINATOR_CLIENT_ID"`
	ClientKey   string        `env:"COORDINATOR_CLIENT_KEY"`
	OTELURL     url.URL       `env:"COORDINATOR_OTEL_URL"`
	TraceRatio  float64       `env:"COORDINATOR_TRACE_RATIO"  envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	coordCfg := coordinator.Config{}
	if err := env.ParseWithOptions(&coordCfg, env.Options{Prefix: envPrefix}); err != nil {
		log.Fatalf("failed to load coordinator configuration : %s", err.Error())
	}

	storageCfg := storage.Config{}
	if err := env.Parse(&storageCfg); err != nil {
		log.Fatalf("failed to load storage configuration : %s", err.Error())
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		log.Fatalf("failed to load HTTP server configuration : %s", err.Error())
	}

	if err := fleetguardd.StartCoordinator(ctx, cancel, fleetguardd.CoordinatorConfig{
		LogLevel:    cfg.LogLevel,
		InstanceID:  cfg.InstanceID,
		MQTTAddress: cfg.MQTTAddress,
		MQTTQoS:     cfg.MQTTQoS,
		MQTTTimeout: cfg.MQTTTimeout,
		ClientID:    cfg.ClientID,
		ClientKey:   cfg.ClientKey,
		Coordinator: coordCfg,
		Storage:     storageCfg,
		Server:      httpServerConfig,
		OTELURL:     cfg.OTELURL,
		TraceRatio:  cfg.TraceRatio,
	}); err != nil {
		log.Fatalf("coordinator exited with error: %s", err.Error())
	}
}
