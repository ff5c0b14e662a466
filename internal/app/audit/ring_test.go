package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisFeed/internal/clock"
	"github.com/ghalamif/AegisFeed/internal/domain"
)

func TestRingNewestFirstAndBounded(t *testing.T) {
	fc := clock.Fake(time.Unix(0, 0))
	r := NewRing(3, fc)
	for i := 1; i <= 5; i++ {
		r.Addf("line %d", i)
		fc.Advance(time.Second)
	}
	got := r.Entries()
	require.Len(t, got, 3)
	assert.Equal(t, "line 5", got[0].Message)
	assert.Equal(t, "line 3", got[2].Message)
	assert.Equal(t, time.Unix(4, 0), got[0].Time)
}

func TestRingDefaultsAndSubscribers(t *testing.T) {
	r := NewRing(0, nil)
	var seen []string
	r.Subscribe(func(e domain.AuditEntry) { seen = append(seen, e.Message) })
	for i := 0; i < 25; i++ {
		r.Add(fmt.Sprint(i))
	}
	assert.Equal(t, DefaultSize, r.Len())
	assert.Len(t, seen, 25)

	entries := r.Entries()
	entries[0].Message = "mutated"
	assert.Equal(t, "24", r.Entries()[0].Message)
}
