package aegisfeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisFeed/internal/domain"
)

func TestRecorderArchivesAndCommits(t *testing.T) {
	snk, ch, closeFn := NewChannelSink("rec", 4)
	defer closeFn()

	rec, err := NewRecorder(RecorderConfig{Dir: t.TempDir(), Policy: Policy{IdleSleep: time.Millisecond}}, snk)
	require.NoError(t, err)
	require.NoError(t, rec.Start(context.Background()))

	require.NoError(t, rec.Record(Snapshot{ISP: domain.Available(251)}))

	select {
	case batch := <-ch:
		require.Len(t, batch, 1)
		require.InDelta(t, 251, batch[0].ISP.Value, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for archived batch")
	}

	require.Eventually(t, func() bool {
		stats, _ := rec.Stats()
		return stats.OldestUncommitted > stats.LatestAppended
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Close(ctx))
	require.ErrorIs(t, rec.Record(Snapshot{}), ErrRecorderClosed)
}

func TestRecorderReplaysUnarchivedEntries(t *testing.T) {
	dir := t.TempDir()

	failing := NewCallbackSink("down", func([]Snapshot) error { return context.DeadlineExceeded })
	first, err := NewRecorder(RecorderConfig{Dir: dir, Policy: Policy{IdleSleep: time.Millisecond}}, failing)
	require.NoError(t, err)
	require.NoError(t, first.Start(context.Background()))
	require.NoError(t, first.Record(Snapshot{Voltage: domain.Available(12)}))
	require.Eventually(t, func() bool {
		stats, _ := first.Stats()
		return stats.LatestAppended == 1
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, first.Close(ctx))

	snk, ch, closeFn := NewChannelSink("up", 4)
	defer closeFn()
	second, err := NewRecorder(RecorderConfig{Dir: dir, Policy: Policy{IdleSleep: time.Millisecond}}, snk)
	require.NoError(t, err)
	require.NoError(t, second.Start(context.Background()))
	defer second.Close(context.Background())

	select {
	case batch := <-ch:
		require.Len(t, batch, 1)
		require.InDelta(t, 12, batch[0].Voltage.Value, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("replayed entry never reached the sink")
	}
}
