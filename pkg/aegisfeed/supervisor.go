// Package aegisfeed embeds the rig supervisor: valve arbitration, telemetry,
// automation rules, session recording and the operator HTTP surface.
package aegisfeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ghalamif/AegisFeed/internal/adapters/observability"
	"github.com/ghalamif/AegisFeed/internal/adapters/opcua"
	"github.com/ghalamif/AegisFeed/internal/adapters/queue"
	"github.com/ghalamif/AegisFeed/internal/adapters/sink"
	"github.com/ghalamif/AegisFeed/internal/adapters/status"
	"github.com/ghalamif/AegisFeed/internal/adapters/ws"
	"github.com/ghalamif/AegisFeed/internal/app/audit"
	"github.com/ghalamif/AegisFeed/internal/app/automation"
	"github.com/ghalamif/AegisFeed/internal/app/control"
	"github.com/ghalamif/AegisFeed/internal/app/telemetry"
	"github.com/ghalamif/AegisFeed/internal/clock"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

// Option customizes the dependencies used by the Supervisor.
type Option func(*overrides)

type overrides struct {
	source        ports.TelemetrySource
	sink          ports.Sink
	transformer   ports.Transformer
	wal           ports.WAL
	queue         ports.SnapshotQueue
	observability ports.Observability
	clock         clock.Clock
	gatherer      prometheus.Gatherer
	noTransport   bool
}

func (o *overrides) apply(opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
}

// WithTelemetrySource adds an alternate snapshot source next to the controller session.
func WithTelemetrySource(src TelemetrySource) Option {
	return func(o *overrides) {
		o.source = src
	}
}

// WithSink enables session recording into a custom sink.
func WithSink(s Sink) Option {
	return func(o *overrides) {
		o.sink = s
	}
}

// WithTransformer overrides the identity transformer used before archiving.
func WithTransformer(t Transformer) Option {
	return func(o *overrides) {
		o.transformer = t
	}
}

// WithWAL lets callers bring their own WAL implementation.
func WithWAL(w WAL) Option {
	return func(o *overrides) {
		o.wal = w
	}
}

// WithSnapshotQueue injects a custom recorder queue.
func WithSnapshotQueue(q SnapshotQueue) Option {
	return func(o *overrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) Option {
	return func(o *overrides) {
		o.observability = obs
	}
}

// WithClock replaces the wall clock, mainly for deterministic tests.
func WithClock(c clock.Clock) Option {
	return func(o *overrides) {
		o.clock = c
	}
}

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *overrides) {
		o.gatherer = g
	}
}

// WithoutTransport disables the controller session. Commands still queue
// in the outbox; telemetry must arrive through Ingest or a TelemetrySource.
func WithoutTransport() Option {
	return func(o *overrides) {
		o.noTransport = true
	}
}

// Supervisor wires the arbitration engine, the telemetry pipeline, the
// automation engine, the controller session and the optional recorder,
// and exposes lifecycle hooks for embedding inside any Go service.
type Supervisor struct {
	cfg        *Config
	clock      clock.Clock
	obs        ports.Observability
	gatherer   prometheus.Gatherer
	audit      *audit.Ring
	outbox     *queue.MemQueue[domain.Command]
	engine     *control.Engine
	automation *automation.Engine
	telemetry  *telemetry.Pipeline
	session    *ws.Session
	prober     *status.Prober
	source     ports.TelemetrySource
	recorder   *Recorder

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	metricsSrv *http.Server
	simulated  bool
	probed     bool
}

// New bootstraps the default adapters (controller websocket session,
// status prober, optional OPC UA source, Timescale archive, Prometheus
// observability). Options override any of them.
func New(cfg *Config, opts ...Option) (*Supervisor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var o overrides
	o.apply(opts)

	clk := o.clock
	if clk == nil {
		clk = clock.Real()
	}
	obs := o.observability
	if obs == nil {
		log := logrus.New()
		if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
			log.SetLevel(lvl)
		}
		obs = observability.NewPromObs(nil, log)
	}
	gatherer := o.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	ring := audit.NewRing(audit.DefaultSize, clk)
	outboxLen := cfg.Controller.OutboxLen
	if outboxLen <= 0 {
		outboxLen = 1024
	}
	outbox := queue.NewMemQueue[domain.Command](outboxLen)

	rules, err := automation.New(cfg.Automation.Enabled, cfg.Automation.Rules, ring, obs)
	if err != nil {
		return nil, fmt.Errorf("automation: %w", err)
	}

	s := &Supervisor{
		cfg:        cfg,
		clock:      clk,
		obs:        obs,
		gatherer:   gatherer,
		audit:      ring,
		outbox:     outbox,
		engine:     control.NewEngine(clk, outbox, obs, ring),
		automation: rules,
		telemetry: telemetry.New(telemetry.Config{
			Tick:      cfg.Telemetry.Tick,
			BufferLen: cfg.Telemetry.BufferLen,
		}, clk, obs),
		source: o.source,
	}

	if !o.noTransport && cfg.Controller.WSURL != "" {
		s.session = ws.NewSession(ws.Config{
			URL:              cfg.Controller.WSURL,
			ReconnectBackoff: cfg.Controller.ReconnectBackoff,
			BinaryOutbound:   cfg.Controller.BinaryOutbound,
		}, outbox, obs, clk, s.onMessage, s.onConnection)
	}
	if cfg.Controller.StatusURL != "" {
		s.prober = status.NewProber(cfg.Controller.StatusURL, 2*time.Second)
	}

	if s.source == nil && cfg.OPCUA.Enabled() {
		src, err := opcua.NewSource(cfg.OPCUA, obs)
		if err != nil {
			return nil, err
		}
		s.source = src
	}

	if o.sink == nil && cfg.Recorder.Enabled {
		ts, err := sink.OpenTimescale(cfg.Archive.ConnString, cfg.Archive.Table)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		if err := ts.EnsureSchema(); err != nil {
			_ = ts.Close()
			return nil, fmt.Errorf("archive schema: %w", err)
		}
		o.sink = ts
	}
	if o.sink != nil {
		o.observability = obs
		rec, err := newRecorder(cfg.Recorder, &o)
		if err != nil {
			return nil, err
		}
		s.recorder = rec
	}

	s.telemetry.Subscribe(s.onSnapshot)
	s.telemetry.OnEvent(s.onFrame)
	s.engine.Subscribe(func(State) {
		s.obs.SetGauge(observability.OutboxLength, float64(s.outbox.Len()))
	})
	return s, nil
}

// Start launches every loop and the HTTP server. It returns immediately;
// call Run to block on a context instead.
func (s *Supervisor) Start() error {
	if s == nil {
		return fmt.Errorf("supervisor is nil")
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return fmt.Errorf("supervisor already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.ctx, s.cancel = ctx, cancel
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.Start(ctx); err != nil {
			cancel()
			return err
		}
	}

	if s.source != nil {
		ch := make(chan *domain.Snapshot, 64)
		if err := s.source.Start(ch); err != nil {
			cancel()
			return fmt.Errorf("telemetry source: %w", err)
		}
		s.spawn(func() { s.forwardSource(ctx, ch) })
	}

	s.spawn(func() { _ = s.telemetry.Run(ctx) })
	if s.session != nil {
		s.spawn(func() { _ = s.session.Run(ctx) })
	}
	if s.prober != nil && s.session == nil {
		s.spawn(func() { s.probeStatus(ctx) })
	}

	s.startHTTP()
	s.spawn(func() { s.recordGauges(ctx, time.Second) })
	s.audit.Add("supervisor started")
	return nil
}

// Run starts the supervisor and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops the loops, the HTTP server, the telemetry source and the
// recorder. Valves are left as last commanded.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	var errs []error

	s.mu.Lock()
	cancel := s.cancel
	srv := s.metricsSrv
	s.mu.Unlock()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if s.source != nil {
		if err := s.source.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}

	if s.recorder != nil {
		if err := s.recorder.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Supervisor) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Supervisor) startHTTP() {
	if s.cfg.Metrics.Addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              s.cfg.Metrics.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.metricsSrv = srv
	s.mu.Unlock()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.obs.LogError("http server exited", err, ports.F("addr", srv.Addr))
		}
	}()
}

// Handler returns the HTTP surface: /metrics, /healthz and the control API.
func (s *Supervisor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	newControlAPI(s).register(mux)
	return mux
}

func (s *Supervisor) recordGauges(ctx context.Context, interval time.Duration) {
	t := s.clock.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.obs.SetGauge(observability.OutboxLength, float64(s.outbox.Len()))
			if s.recorder != nil {
				stats, depth := s.recorder.Stats()
				s.obs.SetGauge(observability.WALSizeBytes, float64(stats.SizeBytes))
				s.obs.SetGauge(observability.QueueLength, float64(depth))
			}
		}
	}
}

func (s *Supervisor) forwardSource(ctx context.Context, ch <-chan *domain.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if snap != nil {
				s.telemetry.Push(*snap)
			}
		}
	}
}
