// Package telemetry turns controller frames into a latest-wins stream of
// normalized snapshots.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghalamif/AegisFeed/internal/adapters/observability"
	"github.com/ghalamif/AegisFeed/internal/adapters/protocol"
	"github.com/ghalamif/AegisFeed/internal/adapters/queue"
	"github.com/ghalamif/AegisFeed/internal/clock"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

type Config struct {
	Tick      time.Duration
	BufferLen int
}

// EventHandler receives every decoded frame that is not sensor_data.
type EventHandler func(protocol.Frame)

// Pipeline buffers incoming snapshots and publishes only the newest one
// per tick. Subscribers run on the tick goroutine.
type Pipeline struct {
	cfg    Config
	clock  clock.Clock
	obs    ports.Observability
	buffer *queue.MemQueue[domain.Snapshot]
	latest atomic.Pointer[domain.Snapshot]

	mu      sync.Mutex
	subs    []func(domain.Snapshot)
	onEvent EventHandler
}

func New(cfg Config, clk clock.Clock, obs ports.Observability) *Pipeline {
	if cfg.Tick <= 0 {
		cfg.Tick = 2 * time.Millisecond
	}
	if cfg.BufferLen <= 0 {
		cfg.BufferLen = 4096
	}
	if clk == nil {
		clk = clock.Real()
	}
	if obs == nil {
		obs = observability.Nop{}
	}
	return &Pipeline{
		cfg:    cfg,
		clock:  clk,
		obs:    obs,
		buffer: queue.NewMemQueue[domain.Snapshot](cfg.BufferLen),
	}
}

func (p *Pipeline) OnEvent(h EventHandler) {
	p.mu.Lock()
	p.onEvent = h
	p.mu.Unlock()
}

func (p *Pipeline) Subscribe(fn func(domain.Snapshot)) {
	p.mu.Lock()
	p.subs = append(p.subs, fn)
	p.mu.Unlock()
}

// Ingest decodes one raw frame. Malformed or unknown frames are counted,
// logged and dropped; they never reach the buffer.
func (p *Pipeline) Ingest(data []byte, binary bool) {
	f, err := protocol.Decode(data, binary)
	if err != nil {
		p.obs.IncCounter(observability.FramesDropped, 1)
		p.obs.LogWarn("dropping controller frame", ports.F("error", err.Error()), ports.F("bytes", len(data)))
		return
	}
	p.obs.IncCounter(observability.FramesDecoded, 1)

	if f.Kind == protocol.KindSensorData {
		p.Push(Normalize(*f.Sensor, p.clock.Now()))
		return
	}

	p.mu.Lock()
	h := p.onEvent
	p.mu.Unlock()
	if h != nil {
		h(f)
	}
}

// Push buffers an already normalized snapshot. On overflow everything
// buffered is discarded first; only the newest entry matters at the next
// tick anyway.
func (p *Pipeline) Push(s domain.Snapshot) {
	if p.buffer.Enqueue(s) {
		return
	}
	p.buffer.Drain()
	p.obs.IncCounter(observability.BufferOverflow, 1)
	p.buffer.Enqueue(s)
}

// Tick publishes the newest buffered snapshot and discards the rest. It
// reports whether anything was published.
func (p *Pipeline) Tick() bool {
	batch := p.buffer.Drain()
	if len(batch) == 0 {
		return false
	}
	snap := batch[len(batch)-1]
	p.latest.Store(&snap)
	p.obs.IncCounter(observability.SnapshotsPublished, 1)

	p.mu.Lock()
	subs := p.subs
	p.mu.Unlock()
	for _, fn := range subs {
		p.deliver(fn, snap)
	}
	return true
}

func (p *Pipeline) deliver(fn func(domain.Snapshot), s domain.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			p.obs.LogError("telemetry subscriber panicked", fmt.Errorf("%v", r))
		}
	}()
	fn(s)
}

// Latest returns the last published snapshot.
func (p *Pipeline) Latest() (domain.Snapshot, bool) {
	s := p.latest.Load()
	if s == nil {
		return domain.Snapshot{}, false
	}
	return *s, true
}

func (p *Pipeline) Buffered() int { return p.buffer.Len() }

// Run ticks until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	t := p.clock.NewTicker(p.cfg.Tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.Tick()
		}
	}
}
