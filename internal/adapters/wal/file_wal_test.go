package wal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

func snapshotWithThrust(v float64) *domain.Snapshot {
	s := &domain.Snapshot{Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)}
	s.Thrust = domain.Available(v)
	s.Pressures[0] = domain.Available(4.25)
	s.Pressures[1] = domain.Available(0)
	return s
}

func TestFileWALAppendIterateAndReplay(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFileWAL(dir, 0)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}

	id1, err := w.Append(snapshotWithThrust(1))
	if err != nil || id1 == 0 {
		t.Fatalf("append snapshot 1: %v id=%d", err, id1)
	}
	id2, err := w.Append(snapshotWithThrust(2))
	if err != nil || id2 == 0 {
		t.Fatalf("append snapshot 2: %v id=%d", err, id2)
	}

	var thrusts []float64
	if err := w.Iterate(1, func(id ports.WALEntryID, s *domain.Snapshot) error {
		thrusts = append(thrusts, s.Thrust.Value)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(thrusts) != 2 || thrusts[0] != 1 || thrusts[1] != 2 {
		t.Fatalf("unexpected replay: %v", thrusts)
	}

	if err := w.Commit(id2); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close wal: %v", err)
	}

	// Reopen and ensure committed metadata was persisted.
	w2, err := NewFileWAL(dir, 0)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}

	stats := w2.Stats()
	if stats.LatestAppended != id2 {
		t.Fatalf("expected latest appended %d, got %d", id2, stats.LatestAppended)
	}
	if stats.OldestUncommitted != id2+1 {
		t.Fatalf("expected oldest uncommitted %d, got %d", id2+1, stats.OldestUncommitted)
	}

	// A torn trailing write must be cut off on the next open.
	if err := appendGarbage(filepath.Join(dir, "wal.log")); err != nil {
		t.Fatalf("append garbage: %v", err)
	}
	if err := w2.Close(); err != nil {
		t.Fatalf("close wal2: %v", err)
	}

	w3, err := NewFileWAL(dir, 0)
	if err != nil {
		t.Fatalf("reopen after garbage: %v", err)
	}
	defer w3.Close()
	if w3.Stats().LatestAppended != id2 {
		t.Fatalf("expected latest appended %d after repair, got %d", id2, w3.Stats().LatestAppended)
	}
}

func TestFileWALKeepsUnavailableReadings(t *testing.T) {
	w, err := NewFileWAL(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	defer w.Close()

	in := snapshotWithThrust(7)
	if _, err := w.Append(in); err != nil {
		t.Fatalf("append: %v", err)
	}

	var got *domain.Snapshot
	if err := w.Iterate(0, func(_ ports.WALEntryID, s *domain.Snapshot) error {
		got = s
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if got == nil {
		t.Fatalf("no entry replayed")
	}
	if *got != *in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, *in)
	}
	if got.Pressures[2].Valid || !got.Pressures[1].Valid {
		t.Fatalf("availability lost: %+v", got.Pressures)
	}
}

func TestFileWALTruncateCommitted(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWAL(dir, 0)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	defer w.Close()

	for i := 1; i <= 3; i++ {
		if _, err := w.Append(snapshotWithThrust(float64(i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	before := w.Stats().SizeBytes
	if err := w.Commit(2); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.TruncateCommitted(); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if after := w.Stats().SizeBytes; after >= before || after == 0 {
		t.Fatalf("expected smaller log, before=%d after=%d", before, after)
	}

	var ids []ports.WALEntryID
	if err := w.Iterate(0, func(id ports.WALEntryID, _ *domain.Snapshot) error {
		ids = append(ids, id)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(ids) != 1 || ids[0] != 3 {
		t.Fatalf("expected only entry 3 to survive, got %v", ids)
	}

	id, err := w.Append(snapshotWithThrust(4))
	if err != nil || id != 4 {
		t.Fatalf("append after truncate: id=%d err=%v", id, err)
	}
}

func TestFileWALSizeLimit(t *testing.T) {
	w, err := NewFileWAL(t.TempDir(), 64)
	if err != nil {
		t.Fatalf("new wal: %v", err)
	}
	defer w.Close()

	var full bool
	for i := 0; i < 10; i++ {
		if _, err := w.Append(snapshotWithThrust(float64(i))); errors.Is(err, ErrWALFull) {
			full = true
			break
		} else if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if !full {
		t.Fatalf("expected ErrWALFull within 10 appends")
	}
}

func appendGarbage(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte{0xFF, 0xAA})
	return err
}
