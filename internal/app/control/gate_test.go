package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ghalamif/AegisFeed/internal/domain"
)

func TestAdmit(t *testing.T) {
	t0 := time.Unix(1000, 0)
	open := domain.Vector(0, 1, 0, 0, 0, 0, 0, 0, 0)
	recent := [domain.ValveCount]time.Time{}
	recent[domain.GOX1] = t0.Add(-150 * time.Millisecond)
	old := [domain.ValveCount]time.Time{}
	old[domain.GOX1] = t0.Add(-ManualDebounce)

	cases := []struct {
		name       string
		in         domain.CommandIntent
		st         GateState
		want       Decision
		wantValves domain.ValveVector
	}{
		{"manual opens", domain.SetValve(domain.SourceManual, domain.GOX1, true), GateState{Mode: domain.ModeIdle}, Admitted, open},
		{"same state", domain.SetValve(domain.SourceManual, domain.GOX1, true), GateState{Valves: open, Mode: domain.ModeIdle}, Unchanged, open},
		{"debounced", domain.SetValve(domain.SourceManual, domain.GOX1, false), GateState{Valves: open, LastManual: recent}, RejectedDebounce, open},
		{"debounce boundary", domain.SetValve(domain.SourceManual, domain.GOX1, false), GateState{Valves: open, LastManual: old}, Admitted, domain.ValveVector{}},
		{"other valve not debounced", domain.SetValve(domain.SourceManual, domain.Fuel1, true), GateState{Valves: open, LastManual: recent}, Admitted, open.With(domain.Fuel1, true)},
		{"automation ignores debounce", domain.SetValve(domain.SourceAutomation, domain.GOX1, false), GateState{Valves: open, LastManual: recent}, Admitted, domain.ValveVector{}},
		{"emergency blocks manual", domain.SetValve(domain.SourceManual, domain.Relief1, true), GateState{Mode: domain.ModeEmergency}, RejectedEmergency, domain.ValveVector{}},
		{"emergency blocks scenario", domain.SetVector(domain.SourceScenario, open), GateState{Mode: domain.ModeEmergency}, RejectedEmergency, domain.ValveVector{}},
		{"emergency blocks automation", domain.SetValve(domain.SourceAutomation, domain.GOX1, true), GateState{Mode: domain.ModeEmergency}, RejectedEmergency, domain.ValveVector{}},
		{"emergency source passes", domain.SetVector(domain.SourceEmergency, open), GateState{Mode: domain.ModeEmergency}, Admitted, open},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, next := Admit(tc.in, tc.st, t0)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantValves, next.Valves)
			assert.Equal(t, tc.st.Mode, next.Mode, "admission never changes mode")
		})
	}
}

func TestAdmitStampsDebounceOnlyWhenPassing(t *testing.T) {
	t0 := time.Unix(1000, 0)
	st := GateState{}

	_, st = Admit(domain.SetValve(domain.SourceManual, domain.GOX2, true), st, t0)
	assert.Equal(t, t0, st.LastManual[domain.GOX2])

	// an idempotent manual command still counts as a press
	d, st2 := Admit(domain.SetValve(domain.SourceManual, domain.GOX2, true), st, t0.Add(300*time.Millisecond))
	assert.Equal(t, Unchanged, d)
	assert.Equal(t, t0.Add(300*time.Millisecond), st2.LastManual[domain.GOX2])

	// a rejected one does not
	d, st3 := Admit(domain.SetValve(domain.SourceManual, domain.GOX2, false), st2, t0.Add(350*time.Millisecond))
	assert.Equal(t, RejectedDebounce, d)
	assert.Equal(t, st2, st3)
}

func TestAdmitWholeVectorManualDebouncesFlippedValves(t *testing.T) {
	t0 := time.Unix(1000, 0)
	st := GateState{}
	st.LastManual[domain.Purge1] = t0.Add(-10 * time.Millisecond)

	// Purge1 does not change, so its recent press does not matter
	d, next := Admit(domain.SetVector(domain.SourceManual, domain.Vector(1, 0, 0, 0, 0, 0, 0, 0, 0)), st, t0)
	assert.Equal(t, Admitted, d)
	assert.Equal(t, t0, next.LastManual[domain.Relief1])

	d, _ = Admit(domain.SetVector(domain.SourceManual, domain.Vector(0, 0, 1, 0, 0, 0, 0, 0, 0)), st, t0)
	assert.Equal(t, RejectedDebounce, d)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "rejected_debounce", RejectedDebounce.String())
	assert.True(t, RejectedEmergency.Rejected())
	assert.False(t, Unchanged.Rejected())
}
