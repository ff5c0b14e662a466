package aegisfeed

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ghalamif/AegisFeed/internal/domain"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("aegisfeed: channel sink closed")

// SnapshotBatchSink is invoked with ordered batches dequeued from the recorder.
type SnapshotBatchSink func([]Snapshot) error

// NewCallbackSink adapts a SnapshotBatchSink into a full Sink so callers
// can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn SnapshotBatchSink) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches via a channel; it returns the sink, the read-only channel,
// and a close function that the caller should invoke during shutdown.
func NewChannelSink(name string, buffer int) (Sink, <-chan []Snapshot, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Snapshot, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   SnapshotBatchSink
}

func (s *callbackSink) WriteBatch(snapshots []*domain.Snapshot) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(snapshots) == 0 {
		return nil
	}
	return s.fn(copyBatch(snapshots))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []Snapshot
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) WriteBatch(snapshots []*domain.Snapshot) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if len(snapshots) == 0 {
		return nil
	}

	batch := copyBatch(snapshots)

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- batch:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

// copyBatch detaches the batch from recorder-owned pointers.
func copyBatch(snapshots []*domain.Snapshot) []Snapshot {
	out := make([]Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s == nil {
			continue
		}
		out = append(out, *s)
	}
	return out
}
