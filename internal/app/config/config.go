// Package config loads the supervisor's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ghalamif/AegisFeed/internal/adapters/opcua"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Automation AutomationConfig `yaml:"automation"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Recorder   RecorderConfig   `yaml:"recorder"`
	Archive    ArchiveConfig    `yaml:"archive"`
	OPCUA      opcua.Config     `yaml:"opcua"`
	Log        LogConfig        `yaml:"log"`
}

type ControllerConfig struct {
	WSURL            string        `yaml:"ws_url"`
	StatusURL        string        `yaml:"status_url"`
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff"`
	BinaryOutbound   bool          `yaml:"binary_outbound"`
	OutboxLen        int           `yaml:"outbox_len"`
}

type TelemetryConfig struct {
	Tick      time.Duration `yaml:"tick"`
	BufferLen int           `yaml:"buffer_len"`
}

type AutomationConfig struct {
	Enabled bool                    `yaml:"enabled"`
	Rules   []domain.AutomationRule `yaml:"rules"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// RecorderConfig enables the session recorder. Recording needs an
// archive connection string.
type RecorderConfig struct {
	Enabled bool         `yaml:"enabled"`
	Dir     string       `yaml:"dir"`
	Policy  ports.Policy `yaml:"policy"`
}

type ArchiveConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Controller.ReconnectBackoff == 0 {
		c.Controller.ReconnectBackoff = 3 * time.Second
	}
	if c.Controller.OutboxLen == 0 {
		c.Controller.OutboxLen = 1024
	}
	if c.Telemetry.Tick == 0 {
		c.Telemetry.Tick = 2 * time.Millisecond
	}
	if c.Telemetry.BufferLen == 0 {
		c.Telemetry.BufferLen = 4096
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Recorder.Dir == "" {
		c.Recorder.Dir = "./data/wal"
	}
	p := &c.Recorder.Policy
	if p.MaxWALSizeBytes == 0 {
		p.MaxWALSizeBytes = 1 << 30
	}
	if p.MaxQueueLen == 0 {
		p.MaxQueueLen = 100_000
	}
	if p.MaxBatchSize == 0 {
		p.MaxBatchSize = 500
	}
	if p.IdleSleep == 0 {
		p.IdleSleep = 5 * time.Millisecond
	}
	if p.OnQueueFull == "" {
		p.OnQueueFull = "drop"
	}
	if p.OnWALFull == "" {
		p.OnWALFull = "drop"
	}
	if c.Archive.Table == "" {
		c.Archive.Table = "snapshots"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.OPCUA.Enabled() {
		c.OPCUA.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if c.Controller.WSURL == "" && !c.OPCUA.Enabled() {
		return errors.New("controller.ws_url or opcua.endpoint is required")
	}
	if c.OPCUA.Enabled() {
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}
	if c.Controller.ReconnectBackoff < 0 {
		return errors.New("controller.reconnect_backoff must not be negative")
	}
	if c.Telemetry.Tick < 0 {
		return errors.New("telemetry.tick must not be negative")
	}
	if c.Recorder.Enabled {
		if c.Archive.ConnString == "" {
			return errors.New("archive.conn_string is required when the recorder is enabled")
		}
		if err := validPolicy("on_queue_full", c.Recorder.Policy.OnQueueFull); err != nil {
			return err
		}
		if err := validPolicy("on_wal_full", c.Recorder.Policy.OnWALFull); err != nil {
			return err
		}
	}
	for i, r := range c.Automation.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("automation.rules[%d]: %w", i, err)
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func validPolicy(key, v string) error {
	switch strings.ToLower(v) {
	case "block", "drop", "reject":
		return nil
	}
	return fmt.Errorf("recorder.policy.%s: unknown policy %q", key, v)
}
