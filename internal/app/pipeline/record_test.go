package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ghalamif/AegisFeed/internal/adapters/queue"
	"github.com/ghalamif/AegisFeed/internal/adapters/wal"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

func TestWaitForWALCapacityBlockThenSucceed(t *testing.T) {
	w := &mockWAL{
		sizes: []int64{150, 50},
	}
	pol := ports.Policy{
		MaxWALSizeBytes: 100,
		OnWALFull:       "block",
		IdleSleep:       time.Millisecond,
	}
	obs := &mockObs{}

	if ok := waitForWALCapacity(context.Background(), w, pol, obs); !ok {
		t.Fatalf("expected waitForWALCapacity to eventually succeed")
	}
	if w.calls < 2 {
		t.Fatalf("expected multiple stats calls, got %d", w.calls)
	}
}

func TestWaitForWALCapacityBlockHonoursContext(t *testing.T) {
	w := &mockWAL{sizes: []int64{500}}
	pol := ports.Policy{MaxWALSizeBytes: 100, OnWALFull: "block", IdleSleep: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if ok := waitForWALCapacity(ctx, w, pol, &mockObs{}); ok {
		t.Fatalf("expected cancelled wait to give up")
	}
}

func TestWaitForWALCapacityDrop(t *testing.T) {
	w := &mockWAL{
		sizes: []int64{200, 200},
	}
	pol := ports.Policy{
		MaxWALSizeBytes: 100,
		OnWALFull:       "drop",
	}
	obs := &mockObs{}

	if ok := waitForWALCapacity(context.Background(), w, pol, obs); ok {
		t.Fatalf("expected waitForWALCapacity to drop and return false")
	}
	if len(obs.errors) == 0 {
		t.Fatalf("expected error to be logged")
	}
}

func TestEnqueueWithPolicyBlock(t *testing.T) {
	q := &mockQueue{}
	q.failures = 1

	pol := ports.Policy{
		OnQueueFull: "block",
		IdleSleep:   time.Millisecond,
	}
	obs := &mockObs{}

	if ok := enqueueWithPolicy(context.Background(), q, ports.QueuedSnapshot{ID: 1, Snapshot: &domain.Snapshot{}}, pol, obs); !ok {
		t.Fatalf("expected enqueue to eventually succeed")
	}
	if q.calls != 2 {
		t.Fatalf("expected two enqueue attempts, got %d", q.calls)
	}
}

func TestEnqueueWithPolicyDrop(t *testing.T) {
	q := &mockQueue{failAlways: true}
	pol := ports.Policy{
		OnQueueFull: "drop",
	}
	obs := &mockObs{}

	if ok := enqueueWithPolicy(context.Background(), q, ports.QueuedSnapshot{ID: 1}, pol, obs); ok {
		t.Fatalf("expected enqueueWithPolicy to fail")
	}
	if len(obs.errors) == 0 {
		t.Fatalf("expected drop to log an error")
	}
}

func TestRecorderWritesWALThenQueue(t *testing.T) {
	w, err := wal.NewFileWAL(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("wal: %v", err)
	}
	defer w.Close()
	q := queue.NewMemQueue[ports.QueuedSnapshot](8)

	in := make(chan *domain.Snapshot, 3)
	for i := 1; i <= 3; i++ {
		in <- &domain.Snapshot{Thrust: domain.Available(float64(i))}
	}
	close(in)

	if err := RunRecorder(context.Background(), in, w, q, ports.Policy{OnQueueFull: "drop"}, &mockObs{}); err != nil {
		t.Fatalf("recorder: %v", err)
	}

	batch := q.DequeueBatch(0)
	if len(batch) != 3 || batch[0].ID != 1 || batch[2].Snapshot.Thrust.Value != 3 {
		t.Fatalf("unexpected queue contents: %+v", batch)
	}
	if got := w.Stats().LatestAppended; got != 3 {
		t.Fatalf("expected 3 WAL entries, got %d", got)
	}
}

func TestReplayWALQueuesUncommitted(t *testing.T) {
	dir := t.TempDir()
	w, err := wal.NewFileWAL(dir, 0)
	if err != nil {
		t.Fatalf("wal: %v", err)
	}
	for i := 1; i <= 4; i++ {
		if _, err := w.Append(&domain.Snapshot{Voltage: domain.Available(float64(i))}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Commit(2); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w2, err := wal.NewFileWAL(dir, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w2.Close()

	q := queue.NewMemQueue[ports.QueuedSnapshot](8)
	n, err := ReplayWAL(context.Background(), w2, q, ports.Policy{OnQueueFull: "drop"}, &mockObs{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	batch := q.DequeueBatch(0)
	if n != 2 || len(batch) != 2 || batch[0].ID != 3 || batch[1].Snapshot.Voltage.Value != 4 {
		t.Fatalf("unexpected replay n=%d batch=%+v", n, batch)
	}
}

type mockWAL struct {
	ports.WAL
	sizes     []int64
	calls     int
	committed ports.WALEntryID
}

func (m *mockWAL) Stats() ports.WALStats {
	idx := m.calls
	if idx >= len(m.sizes) {
		idx = len(m.sizes) - 1
	}
	m.calls++
	return ports.WALStats{
		SizeBytes: m.sizes[idx],
	}
}

func (m *mockWAL) Commit(upto ports.WALEntryID) error {
	m.committed = upto
	return nil
}

type mockQueue struct {
	failures   int32
	failAlways bool
	calls      int
}

func (m *mockQueue) Enqueue(ports.QueuedSnapshot) bool {
	m.calls++
	if m.failAlways {
		return false
	}
	if atomic.LoadInt32(&m.failures) > 0 {
		atomic.AddInt32(&m.failures, -1)
		return false
	}
	return true
}

func (m *mockQueue) DequeueBatch(int) []ports.QueuedSnapshot { return nil }
func (m *mockQueue) Len() int                                { return 0 }

type mockObs struct {
	errors  []error
	dlq     int
	samples float64
}

func (m *mockObs) LogInfo(string, ...ports.Field)                 {}
func (m *mockObs) LogWarn(string, ...ports.Field)                 {}
func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) { m.errors = append(m.errors, err) }
func (m *mockObs) LogCritical(string, error, ...ports.Field)      {}
func (m *mockObs) IncCounter(name string, v float64) {
	if name == "aegis_recorder_samples_total" {
		m.samples += v
	}
}
func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(string, float64)       {}
func (m *mockObs) RecordDLQ(ports.WALEntryID, *domain.Snapshot, error) {
	m.dlq++
}
