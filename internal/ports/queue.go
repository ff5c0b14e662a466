package ports

import "github.com/ghalamif/AegisFeed/internal/domain"

// Queue is a bounded FIFO. Enqueue reports false when full.
type Queue[T any] interface {
	Enqueue(item T) bool
	DequeueBatch(max int) []T
	Len() int
}

type QueuedSnapshot struct {
	ID       WALEntryID
	Snapshot *domain.Snapshot
}

// SnapshotQueue carries WAL-backed snapshots to the archive sink.
type SnapshotQueue = Queue[QueuedSnapshot]

// CommandQueue holds outbound controller frames until the session writer
// drains them.
type CommandQueue = Queue[domain.Command]
