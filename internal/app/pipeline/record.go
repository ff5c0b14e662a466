// Package pipeline records published snapshots: WAL first, then a
// bounded queue feeding the archive sink.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ghalamif/AegisFeed/internal/adapters/observability"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

// RunRecorder appends every snapshot from in to the WAL and queues it for
// the archiver. It returns when ctx is done or in is closed.
func RunRecorder(ctx context.Context, in <-chan *domain.Snapshot, wal ports.WAL, q ports.SnapshotQueue, pol ports.Policy, obs ports.Observability) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-in:
			if !ok {
				return nil
			}
			if !waitForWALCapacity(ctx, wal, pol, obs) {
				obs.IncCounter(observability.RecorderDropped, 1)
				continue
			}

			id, err := wal.Append(s)
			if err != nil {
				obs.LogCritical("wal_append_failed", err)
				obs.IncCounter(observability.RecorderDropped, 1)
				continue
			}

			if !enqueueWithPolicy(ctx, q, ports.QueuedSnapshot{ID: id, Snapshot: s}, pol, obs) {
				obs.IncCounter(observability.RecorderDropped, 1)
			}
		}
	}
}

func idleSleep(pol ports.Policy) time.Duration {
	if pol.IdleSleep <= 0 {
		return 5 * time.Millisecond
	}
	return pol.IdleSleep
}

func waitForWALCapacity(ctx context.Context, wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			if !sleepCtx(ctx, idleSleep(pol)) {
				return false
			}
		case "drop", "reject":
			obs.LogError("wal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("wal_policy_invalid", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

func enqueueWithPolicy(ctx context.Context, q ports.SnapshotQueue, item ports.QueuedSnapshot, pol ports.Policy, obs ports.Observability) bool {
	for {
		if ok := q.Enqueue(item); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			if !sleepCtx(ctx, idleSleep(pol)) {
				return false
			}
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ReplayWAL queues every uncommitted entry so a restart archives what the
// previous session recorded but never flushed.
func ReplayWAL(ctx context.Context, wal ports.WAL, q ports.SnapshotQueue, pol ports.Policy, obs ports.Observability) (int, error) {
	stats := wal.Stats()
	if stats.LatestAppended == 0 {
		return 0, nil
	}
	start := stats.OldestUncommitted
	if start == 0 || start > stats.LatestAppended {
		return 0, nil
	}

	var replayed int
	err := wal.Iterate(start, func(id ports.WALEntryID, s *domain.Snapshot) error {
		if !enqueueWithPolicy(ctx, q, ports.QueuedSnapshot{ID: id, Snapshot: s}, pol, obs) {
			return fmt.Errorf("queue full during WAL replay at entry %d", id)
		}
		replayed++
		return nil
	})
	if err != nil {
		return replayed, err
	}
	if replayed > 0 {
		obs.LogInfo("wal_replay_complete", ports.F("snapshots", replayed), ports.F("from_id", uint64(start)))
	}
	return replayed, nil
}
