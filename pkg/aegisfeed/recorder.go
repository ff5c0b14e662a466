package aegisfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ghalamif/AegisFeed/internal/adapters/observability"
	"github.com/ghalamif/AegisFeed/internal/adapters/queue"
	"github.com/ghalamif/AegisFeed/internal/adapters/wal"
	"github.com/ghalamif/AegisFeed/internal/app/pipeline"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

// ErrRecorderBusy is returned when the recorder input is full and the
// snapshot was not recorded.
var ErrRecorderBusy = errors.New("aegisfeed: recorder busy")

// ErrRecorderClosed is returned by Record after Close.
var ErrRecorderClosed = errors.New("aegisfeed: recorder closed")

// Recorder persists published snapshots through WAL → queue → sink. It is
// used by the Supervisor and can run standalone when a caller only wants
// durable archiving of its own snapshots.
type Recorder struct {
	policy      Policy
	wal         ports.WAL
	queue       ports.SnapshotQueue
	transformer ports.Transformer
	sink        ports.Sink
	obs         ports.Observability

	in      chan *domain.Snapshot
	closers []io.Closer

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
	started bool
}

// NewRecorder bootstraps a recorder. The WAL defaults to a FileWAL under
// cfg.Dir and the queue to an in-memory queue of cfg.Policy.MaxQueueLen.
func NewRecorder(cfg RecorderConfig, sink Sink, opts ...Option) (*Recorder, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	var o overrides
	o.apply(opts)
	o.sink = sink
	return newRecorder(cfg, &o)
}

func newRecorder(cfg RecorderConfig, o *overrides) (*Recorder, error) {
	obs := o.observability
	if obs == nil {
		obs = observability.Nop{}
	}
	pol := cfg.Policy
	if pol.MaxQueueLen <= 0 {
		pol.MaxQueueLen = 100_000
	}
	if pol.MaxBatchSize <= 0 {
		pol.MaxBatchSize = 500
	}
	if pol.OnQueueFull == "" {
		pol.OnQueueFull = "drop"
	}
	if pol.OnWALFull == "" {
		pol.OnWALFull = "drop"
	}

	r := &Recorder{
		policy:      pol,
		sink:        o.sink,
		transformer: o.transformer,
		obs:         obs,
		in:          make(chan *domain.Snapshot, 256),
	}
	if r.transformer == nil {
		r.transformer = pipeline.IdentityTransformer{}
	}

	r.wal = o.wal
	if r.wal == nil {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("recorder dir is required")
		}
		fw, err := wal.NewFileWAL(cfg.Dir, pol.MaxWALSizeBytes)
		if err != nil {
			return nil, err
		}
		r.wal = fw
		r.closers = append(r.closers, fw)
	}

	r.queue = o.queue
	if r.queue == nil {
		r.queue = queue.NewMemQueue[ports.QueuedSnapshot](pol.MaxQueueLen)
	}
	if c, ok := o.sink.(io.Closer); ok {
		r.closers = append(r.closers, c)
	}
	return r, nil
}

// Start replays uncommitted WAL entries and launches the recorder and
// archiver loops.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	if r.started {
		return nil
	}

	if _, err := pipeline.ReplayWAL(ctx, r.wal, r.queue, r.policy, r.obs); err != nil {
		return fmt.Errorf("wal replay: %w", err)
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = pipeline.RunRecorder(ctx, r.in, r.wal, r.queue, r.policy, r.obs)
	}()
	go func() {
		defer wg.Done()
		_ = pipeline.RunArchiver(ctx, r.wal, r.queue, r.transformer, r.sink, r.policy, r.obs)
	}()
	go func() {
		wg.Wait()
		close(r.done)
	}()
	r.started = true
	return nil
}

// Record hands a snapshot to the recorder without blocking.
func (r *Recorder) Record(s Snapshot) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrRecorderClosed
	}
	select {
	case r.in <- &s:
		return nil
	default:
		r.obs.IncCounter(observability.RecorderDropped, 1)
		return ErrRecorderBusy
	}
}

// Stats reports the WAL and queue depth.
func (r *Recorder) Stats() (WALStats, int) {
	return r.wal.Stats(), r.queue.Len()
}

// Close stops both loops, respecting ctx, and releases the WAL and sink.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
