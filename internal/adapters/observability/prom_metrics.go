package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

// Metric names shared by the engine, pipelines and transport.
const (
	FramesDecoded       = "aegis_frames_decoded_total"
	FramesDropped       = "aegis_frames_dropped_total"
	SnapshotsPublished  = "aegis_snapshots_published_total"
	BufferOverflow      = "aegis_telemetry_buffer_overflow_total"
	IntentsAdmitted     = "aegis_intents_admitted_total"
	IntentsRejected     = "aegis_intents_rejected_total"
	ValveCommands       = "aegis_valve_commands_total"
	OutboxDropped       = "aegis_outbox_dropped_total"
	RecorderSamples     = "aegis_recorder_samples_total"
	RecorderDropped     = "aegis_recorder_dropped_total"
	TransportReconnects = "aegis_transport_reconnects_total"
	DLQTotal            = "aegis_dlq_total"
	SystemModeGauge     = "aegis_system_mode"
	ControllerConnected = "aegis_controller_connected"
	SimulationActive    = "aegis_simulation_active"
	WALSizeBytes        = "aegis_wal_size_bytes"
	QueueLength         = "aegis_queue_length"
	OutboxLength        = "aegis_outbox_length"
	ArchiveLatency      = "aegis_archive_latency_seconds"
)

// PromObs exports rig metrics to Prometheus and writes process logs
// through logrus.
type PromObs struct {
	log      *logrus.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the rig collectors on reg, or on the default
// registerer when reg is nil. A nil logger falls back to the logrus
// standard logger.
func NewPromObs(reg prometheus.Registerer, log *logrus.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	counterHelp := map[string]string{
		FramesDecoded:       "Controller frames decoded.",
		FramesDropped:       "Controller frames dropped as malformed or unknown.",
		SnapshotsPublished:  "Telemetry snapshots published by the tick loop.",
		BufferOverflow:      "Telemetry buffer overflows (oldest entries discarded).",
		IntentsAdmitted:     "Command intents admitted by the arbitration gate.",
		IntentsRejected:     "Command intents rejected by the arbitration gate.",
		ValveCommands:       "valve_command frames enqueued for the controller.",
		OutboxDropped:       "Outbound frames lost because the outbox was full.",
		RecorderSamples:     "Snapshots written to the archive sink.",
		RecorderDropped:     "Snapshots lost due to recorder backpressure policies.",
		TransportReconnects: "Controller connection attempts after a drop.",
		DLQTotal:            "Snapshots sent to DLQ due to transform/sink failures.",
	}
	gaugeHelp := map[string]string{
		SystemModeGauge:     "Current system mode as an index into the mode list (idle=0, emergency=8).",
		ControllerConnected: "1 while the controller session is up.",
		SimulationActive:    "1 when the controller reports simulated sensors.",
		WALSizeBytes:        "Size of the recorder WAL on disk.",
		QueueLength:         "Snapshots buffered for the archive sink.",
		OutboxLength:        "Outbound frames waiting for the controller.",
	}

	p := &PromObs{
		log:      log,
		counters: make(map[string]prometheus.Counter, len(counterHelp)),
		gauges:   make(map[string]prometheus.Gauge, len(gaugeHelp)),
		histos:   make(map[string]prometheus.Observer, 1),
	}
	var collectors []prometheus.Collector
	for name, help := range counterHelp {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		p.counters[name] = c
		collectors = append(collectors, c)
	}
	for name, help := range gaugeHelp {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		p.gauges[name] = g
		collectors = append(collectors, g)
	}
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ArchiveLatency,
		Help:    "Latency from dequeued snapshot batch to sink commit.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	p.histos[ArchiveLatency] = latency
	collectors = append(collectors, latency)

	reg.MustRegister(collectors...)
	return p
}

func (p *PromObs) Logger() *logrus.Logger { return p.log }

func toFields(fields []ports.Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.WithFields(toFields(fields)).Info(msg)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.log.WithFields(toFields(fields)).Warn(msg)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.WithFields(toFields(fields)).WithError(err).Error(msg)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.WithFields(toFields(fields)).WithError(err).WithField("critical", true).Error(msg)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDLQ(id ports.WALEntryID, s *domain.Snapshot, err error) {
	p.IncCounter(DLQTotal, 1)
	entry := p.log.WithField("wal_id", uint64(id))
	if s != nil {
		entry = entry.WithField("ts", s.Timestamp)
	}
	entry.WithError(err).Warn("snapshot sent to DLQ")
}

var _ ports.Observability = (*PromObs)(nil)
