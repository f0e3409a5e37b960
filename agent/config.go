package agent

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

// Config is the agent's file configuration. It is provisioned once per
// endpoint, typically by the CLI, and read at startup.
type Config struct {
	BrokerURL     string `toml:"broker_url"`
	AgentID       string `toml:"agent_id"`
	AgentKey      string `toml:"agent_key"`
	ChannelID     string `toml:"channel_id"`
	Name          string `toml:"name"`
	Organization  string `toml:"organization"`
	SchemaVersion int    `toml:"schema_version"`

	DatasetPath string `toml:"dataset_path"`

	LivelinessInterval time.Duration `toml:"liveliness_interval"`
	ScoreInterval      time.Duration `toml:"score_interval"`
	SweepInterval      time.Duration `toml:"sweep_interval"`
	HoneypotDir        string        `toml:"honeypot_dir"`

	SuspiciousThreshold float64 `toml:"suspicious_threshold"`
	ConfirmThreshold    float64 `toml:"confirm_threshold"`
	ConfirmWindow       int     `toml:"confirm_window"`
	CoolDownWindow      int     `toml:"cool_down_window"`

	LearningRate float64 `toml:"learning_rate"`
	Epochs       int     `toml:"epochs"`
}

func LoadConfig(filepath string) (Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read configuration file '%s': %w", filepath, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration file '%s': %w", filepath, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.SchemaVersion == 0 {
		c.SchemaVersion = 1
	}
	if c.LivelinessInterval == 0 {
		c.LivelinessInterval = 30 * time.Second
	}
	if c.ScoreInterval == 0 {
		c.ScoreInterval = 5 * time.Second
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 10 * time.Second
	}
	if c.HoneypotDir == "" {
		c.HoneypotDir = "./honeypots"
	}
	if c.SuspiciousThreshold == 0 {
		c.SuspiciousThreshold = 0.5
	}
	if c.ConfirmThreshold == 0 {
		c.ConfirmThreshold = 0.7
	}
	if c.ConfirmWindow == 0 {
		c.ConfirmWindow = 3
	}
	if c.CoolDownWindow == 0 {
		c.CoolDownWindow = 5
	}
	if c.LearningRate == 0 {
		c.LearningRate = 0.01
	}
	if c.Epochs == 0 {
		c.Epochs = 20
	}
}

func (c Config) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker_url is required")
	}
	if _, err := url.Parse(c.BrokerURL); err != nil {
		return fmt.Errorf("broker_url is not a valid URL: %w", err)
	}
	if c.AgentID == "" {
		return errors.New("agent_id is required")
	}
	if c.ChannelID == "" {
		return errors.New("channel_id is required")
	}
	if c.Organization == "" {
		return errors.New("organization is required")
	}
	if c.SuspiciousThreshold >= c.ConfirmThreshold {
		return errors.New("suspicious_threshold must be below confirm_threshold")
	}

	return nil
}

// Save writes the configuration as TOML, used by the provisioning CLI.
func (c Config) Save(filepath string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	return os.WriteFile(filepath, data, 0o600)
}
