package observability

import (
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

// Nop discards everything. Handy in tests and for embedding without
// metrics.
type Nop struct{}

func (Nop) LogInfo(string, ...ports.Field)                      {}
func (Nop) LogWarn(string, ...ports.Field)                      {}
func (Nop) LogError(string, error, ...ports.Field)              {}
func (Nop) LogCritical(string, error, ...ports.Field)           {}
func (Nop) IncCounter(string, float64)                          {}
func (Nop) ObserveLatency(string, float64)                      {}
func (Nop) SetGauge(string, float64)                            {}
func (Nop) RecordDLQ(ports.WALEntryID, *domain.Snapshot, error) {}

var _ ports.Observability = Nop{}
