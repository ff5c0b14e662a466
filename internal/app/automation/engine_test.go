package automation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisFeed/internal/app/audit"
	"github.com/ghalamif/AegisFeed/internal/domain"
)

func snapshot(pressures map[int]float64) domain.Snapshot {
	var s domain.Snapshot
	for i, p := range pressures {
		s.Pressures[i] = domain.Available(p)
	}
	return s
}

func reliefRule() domain.AutomationRule {
	return domain.AutomationRule{ID: "relief", PressureSensor: 0, Threshold: 40, Valve: domain.Relief1, Action: domain.ActionOpen, Active: true}
}

func TestEvaluateFiresOnceWithAuditLine(t *testing.T) {
	log := audit.NewRing(0, nil)
	e, err := New(true, []domain.AutomationRule{reliefRule()}, log, nil)
	require.NoError(t, err)

	got := e.Evaluate(snapshot(map[int]float64{0: 40.0}), domain.ValveVector{}, domain.ModeIdle)
	require.Equal(t, []domain.CommandIntent{domain.SetValve(domain.SourceAutomation, domain.Relief1, true)}, got)
	require.Equal(t, 1, log.Len())
	assert.Equal(t, "automation: P1 40.000 bar -> valve 1 (RELIEF1) open requested", log.Entries()[0].Message)

	// already in the target state: nothing to do
	open := domain.ValveVector{}.With(domain.Relief1, true)
	assert.Empty(t, e.Evaluate(snapshot(map[int]float64{0: 45}), open, domain.ModeIdle))
}

func TestEvaluateSkips(t *testing.T) {
	closeRule := domain.AutomationRule{ID: "c", PressureSensor: 3, Threshold: 5, Valve: domain.GOX1, Action: domain.ActionClose, Active: true}
	inactive := reliefRule()
	inactive.ID = "inactive"
	inactive.Active = false

	e, err := New(true, []domain.AutomationRule{closeRule, inactive}, nil, nil)
	require.NoError(t, err)
	gox := domain.ValveVector{}.With(domain.GOX1, true)

	cases := []struct {
		name string
		snap domain.Snapshot
		mode domain.SystemMode
		want int
	}{
		{"below threshold closes", snapshot(map[int]float64{3: 4.999, 0: 99}), domain.ModeO2Feed, 1},
		{"above threshold holds", snapshot(map[int]float64{3: 5.001}), domain.ModeIdle, 0},
		{"unavailable reading", snapshot(map[int]float64{0: 99}), domain.ModeIdle, 0},
		{"emergency mode", snapshot(map[int]float64{3: 0}), domain.ModeEmergency, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, e.Evaluate(tc.snap, gox, tc.mode), tc.want)
		})
	}

	e.SetEnabled(false)
	assert.Empty(t, e.Evaluate(snapshot(map[int]float64{3: 0}), gox, domain.ModeIdle))
}

func TestEvaluateComparesAgainstCurrentValves(t *testing.T) {
	open := reliefRule()
	open.ID = "open"
	dup := reliefRule()
	dup.ID = "dup"
	closeIt := domain.AutomationRule{ID: "close", PressureSensor: 1, Threshold: 10, Valve: domain.Relief1, Action: domain.ActionClose, Active: true}

	e, err := New(true, []domain.AutomationRule{open, dup, closeIt}, nil, nil)
	require.NoError(t, err)
	snap := snapshot(map[int]float64{0: 50, 1: 2})

	// closed: only the open rules fire, the close rule already holds
	got := e.Evaluate(snap, domain.ValveVector{}, domain.ModeIdle)
	assert.Equal(t, []domain.CommandIntent{
		domain.SetValve(domain.SourceAutomation, domain.Relief1, true),
		domain.SetValve(domain.SourceAutomation, domain.Relief1, true),
	}, got)

	// open: only the close rule fires
	got = e.Evaluate(snap, domain.ValveVector{}.With(domain.Relief1, true), domain.ModeIdle)
	assert.Equal(t, []domain.CommandIntent{
		domain.SetValve(domain.SourceAutomation, domain.Relief1, false),
	}, got)
}

func TestRuleManagement(t *testing.T) {
	e, err := New(true, nil, nil, nil)
	require.NoError(t, err)

	r, err := e.Add(domain.AutomationRule{PressureSensor: 2, Threshold: 12, Valve: domain.Relief2, Action: domain.ActionOpen, Active: true})
	require.NoError(t, err)
	assert.Len(t, r.ID, 36, "generated ids are UUIDs")

	_, err = e.Add(r)
	assert.True(t, errors.Is(err, domain.ErrInvalidRule))
	_, err = e.Add(domain.AutomationRule{PressureSensor: 9, Action: domain.ActionOpen})
	assert.True(t, errors.Is(err, domain.ErrInvalidRule))

	toggled, err := e.Toggle(r.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	r.Threshold = 15
	require.NoError(t, e.Update(r))
	assert.Equal(t, 15.0, e.Rules()[0].Threshold)
	assert.True(t, e.Rules()[0].Active, "update replaces the whole rule")

	require.NoError(t, e.Remove(r.ID))
	assert.Empty(t, e.Rules())

	assert.True(t, errors.Is(e.Remove(r.ID), ErrRuleNotFound))
	assert.True(t, errors.Is(e.Update(r), ErrRuleNotFound))
	_, err = e.Toggle("nope")
	assert.True(t, errors.Is(err, ErrRuleNotFound))
}
