package aegisfeed

import (
	base "github.com/ghalamif/AegisFeed/pkg/aegisfeed"
)

// Re-exported errors for convenience.
var (
	ErrUnknownScenario   = base.ErrUnknownScenario
	ErrValveOutOfRange   = base.ErrValveOutOfRange
	ErrInvalidRule       = base.ErrInvalidRule
	ErrRecorderBusy      = base.ErrRecorderBusy
	ErrRecorderClosed    = base.ErrRecorderClosed
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/ghalamif/AegisFeed directly.
type (
	Config            = base.Config
	Policy            = base.Policy
	ControllerConfig  = base.ControllerConfig
	TelemetryConfig   = base.TelemetryConfig
	AutomationConfig  = base.AutomationConfig
	MetricsConfig     = base.MetricsConfig
	RecorderConfig    = base.RecorderConfig
	ArchiveConfig     = base.ArchiveConfig
	OPCUAConfig       = base.OPCUAConfig
	OPCUANodeConfig   = base.OPCUANodeConfig
	Flow              = base.Flow
	FlowOption        = base.FlowOption
	StreamInOption    = base.StreamInOption
	StreamOutOption   = base.StreamOutOption
	Supervisor        = base.Supervisor
	Option            = base.Option
	Recorder          = base.Recorder
	State             = base.State
	Decision          = base.Decision
	Snapshot          = base.Snapshot
	SnapshotBatchSink = base.SnapshotBatchSink
	ValveID           = base.ValveID
	ValveVector       = base.ValveVector
	AutomationRule    = base.AutomationRule
	AuditEntry        = base.AuditEntry
	TelemetrySource   = base.TelemetrySource
	Sink              = base.Sink
	Transformer       = base.Transformer
	SnapshotQueue     = base.SnapshotQueue
	WAL               = base.WAL
	Observability     = base.Observability
	WALEntryID        = base.WALEntryID
	WALStats          = base.WALStats
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...Option) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInSource(src TelemetrySource) StreamInOption {
	return base.StreamInSource(src)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutTransformer(tr Transformer) StreamOutOption {
	return base.StreamOutTransformer(tr)
}

func StreamOutCallback(name string, fn SnapshotBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Supervisor and options.
func New(cfg *Config, opts ...Option) (*Supervisor, error) {
	return base.New(cfg, opts...)
}

func WithTelemetrySource(src TelemetrySource) Option {
	return base.WithTelemetrySource(src)
}

func WithSink(s Sink) Option {
	return base.WithSink(s)
}

func WithTransformer(tr Transformer) Option {
	return base.WithTransformer(tr)
}

func WithWAL(w WAL) Option {
	return base.WithWAL(w)
}

func WithSnapshotQueue(q SnapshotQueue) Option {
	return base.WithSnapshotQueue(q)
}

func WithObservability(obs Observability) Option {
	return base.WithObservability(obs)
}

func WithoutTransport() Option {
	return base.WithoutTransport()
}

// Sink adapters.
func NewCallbackSink(name string, fn SnapshotBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Snapshot, func()) {
	return base.NewChannelSink(name, buffer)
}

// Standalone recorder.
func NewRecorder(cfg RecorderConfig, sink Sink, opts ...Option) (*Recorder, error) {
	return base.NewRecorder(cfg, sink, opts...)
}

func Scenarios() []string {
	return base.Scenarios()
}
