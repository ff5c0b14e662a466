package aegisfeed

import (
	"github.com/ghalamif/AegisFeed/internal/adapters/opcua"
	"github.com/ghalamif/AegisFeed/internal/app/config"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls WAL/queue thresholds of the recorder.
	Policy = ports.Policy
	// ControllerConfig points at the rig controller.
	ControllerConfig = config.ControllerConfig
	// TelemetryConfig tunes the latest-wins tick.
	TelemetryConfig = config.TelemetryConfig
	// AutomationConfig holds the startup rule set.
	AutomationConfig = config.AutomationConfig
	// MetricsConfig configures the metrics and control HTTP server.
	MetricsConfig = config.MetricsConfig
	// RecorderConfig configures on-disk session recording.
	RecorderConfig = config.RecorderConfig
	// ArchiveConfig configures the Timescale sink.
	ArchiveConfig = config.ArchiveConfig
	// LogConfig sets the process log level.
	LogConfig = config.LogConfig
	// OPCUAConfig holds connection and node details of the optional OPC UA source.
	OPCUAConfig = opcua.Config
	// OPCUANodeConfig binds a monitored tag to a snapshot channel.
	OPCUANodeConfig = opcua.NodeConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig decodes, defaults and validates YAML held in memory.
func ParseConfig(raw []byte) (*Config, error) {
	return config.Parse(raw)
}
