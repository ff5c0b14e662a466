package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/AegisFeed/internal/adapters/observability"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

// IdentityTransformer passes snapshots through unchanged.
type IdentityTransformer struct{}

func (IdentityTransformer) Transform(s *domain.Snapshot) (*domain.Snapshot, error) { return s, nil }
func (IdentityTransformer) Version() uint16                                        { return 1 }

// RunArchiver drains the queue in batches into sink and commits the WAL
// up to the last written entry. A failed write keeps the WAL uncommitted
// so the batch is replayed on restart.
func RunArchiver(ctx context.Context, wal ports.WAL, q ports.SnapshotQueue, tr ports.Transformer, sink ports.Sink, pol ports.Policy, obs ports.Observability) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			if !sleepCtx(ctx, idleSleep(pol)) {
				return ctx.Err()
			}
			continue
		}
		archiveBatch(batch, wal, tr, sink, pol, obs)
	}
}

func archiveBatch(batch []ports.QueuedSnapshot, wal ports.WAL, tr ports.Transformer, sink ports.Sink, pol ports.Policy, obs ports.Observability) {
	var (
		out   = make([]*domain.Snapshot, 0, len(batch))
		maxID ports.WALEntryID
	)

	for _, item := range batch {
		if item.ID > maxID {
			maxID = item.ID
		}
		s, err := tr.Transform(item.Snapshot)
		if err != nil {
			obs.RecordDLQ(item.ID, item.Snapshot, err)
			continue
		}
		out = append(out, s)
	}

	if len(out) == 0 {
		commit(wal, maxID, pol, obs)
		return
	}

	start := time.Now()
	if err := sink.WriteBatch(out); err != nil {
		obs.LogError("sink_write_failed", err, ports.F("sink", sink.Name()), ports.F("batch", len(out)))
		// keep WAL; replays later
		return
	}
	obs.ObserveLatency(observability.ArchiveLatency, time.Since(start).Seconds())
	obs.IncCounter(observability.RecorderSamples, float64(len(out)))
	commit(wal, maxID, pol, obs)
}

// commit advances the WAL and compacts it once it passes half its limit.
func commit(wal ports.WAL, upto ports.WALEntryID, pol ports.Policy, obs ports.Observability) {
	if err := wal.Commit(upto); err != nil {
		obs.LogError("wal_commit_failed", err)
		return
	}
	if pol.MaxWALSizeBytes > 0 && wal.Stats().SizeBytes > pol.MaxWALSizeBytes/2 {
		if err := wal.TruncateCommitted(); err != nil {
			obs.LogError("wal_truncate_failed", err)
		}
	}
}
