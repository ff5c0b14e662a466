// Package audit keeps the operator-facing event log.
package audit

import (
	"fmt"
	"sync"

	"github.com/ghalamif/AegisFeed/internal/clock"
	"github.com/ghalamif/AegisFeed/internal/domain"
)

// DefaultSize matches the operator console's visible history.
const DefaultSize = 20

// Ring is a bounded log of human-readable lines, newest first.
type Ring struct {
	mu      sync.Mutex
	clock   clock.Clock
	size    int
	entries []domain.AuditEntry
	sinks   []func(domain.AuditEntry)
}

func NewRing(size int, clk clock.Clock) *Ring {
	if size <= 0 {
		size = DefaultSize
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Ring{clock: clk, size: size, entries: make([]domain.AuditEntry, 0, size)}
}

// Subscribe registers fn for every future entry. fn runs on the caller's
// goroutine after the ring lock is released.
func (r *Ring) Subscribe(fn func(domain.AuditEntry)) {
	r.mu.Lock()
	r.sinks = append(r.sinks, fn)
	r.mu.Unlock()
}

func (r *Ring) Addf(format string, args ...any) {
	r.Add(fmt.Sprintf(format, args...))
}

func (r *Ring) Add(msg string) {
	e := domain.AuditEntry{Time: r.clock.Now(), Message: msg}

	r.mu.Lock()
	if len(r.entries) < r.size {
		r.entries = append(r.entries, domain.AuditEntry{})
	}
	copy(r.entries[1:], r.entries[:len(r.entries)-1])
	r.entries[0] = e
	sinks := r.sinks
	r.mu.Unlock()

	for _, fn := range sinks {
		fn(e)
	}
}

// Entries returns a copy, newest first.
func (r *Ring) Entries() []domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEntry(nil), r.entries...)
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
