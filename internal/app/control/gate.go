// Package control owns the valve vector and system mode. Every write to
// either goes through one admission gate.
package control

import (
	"time"

	"github.com/ghalamif/AegisFeed/internal/domain"
)

// ManualDebounce is the minimum spacing between accepted manual commands
// on the same valve.
const ManualDebounce = 200 * time.Millisecond

type Decision int

const (
	// Admitted changed the vector; one valve_command was sent.
	Admitted Decision = iota
	// Unchanged passed the gate but matched the current vector.
	Unchanged
	RejectedEmergency
	RejectedDebounce
)

func (d Decision) String() string {
	switch d {
	case Admitted:
		return "admitted"
	case Unchanged:
		return "unchanged"
	case RejectedEmergency:
		return "rejected_emergency"
	case RejectedDebounce:
		return "rejected_debounce"
	default:
		return "unknown"
	}
}

func (d Decision) Rejected() bool { return d == RejectedEmergency || d == RejectedDebounce }

// GateState is everything admission depends on.
type GateState struct {
	Valves domain.ValveVector
	Mode   domain.SystemMode
	// LastManual is when each valve last passed the manual debounce.
	LastManual [domain.ValveCount]time.Time
}

// Admit decides one intent against st at time now and returns the state
// to adopt. It has no side effects.
func Admit(in domain.CommandIntent, st GateState, now time.Time) (Decision, GateState) {
	if st.Mode == domain.ModeEmergency && in.Source != domain.SourceEmergency {
		return RejectedEmergency, st
	}

	target := in.Target(st.Valves)

	if in.Source == domain.SourceManual {
		touched := manualTouched(in, st.Valves, target)
		for _, id := range touched {
			last := st.LastManual[id]
			if !last.IsZero() && now.Sub(last) < ManualDebounce {
				return RejectedDebounce, st
			}
		}
		for _, id := range touched {
			st.LastManual[id] = now
		}
	}

	if target == st.Valves {
		return Unchanged, st
	}
	st.Valves = target
	return Admitted, st
}

// manualTouched lists the valves a manual intent addresses: the named
// valve, or every valve a whole-vector intent would flip.
func manualTouched(in domain.CommandIntent, current, target domain.ValveVector) []domain.ValveID {
	if !in.Whole {
		return []domain.ValveID{in.Valve}
	}
	var ids []domain.ValveID
	for i := range current {
		if current[i] != target[i] {
			ids = append(ids, domain.ValveID(i))
		}
	}
	return ids
}
