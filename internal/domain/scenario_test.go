package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmergencyScenarioShape(t *testing.T) {
	def := EmergencyScenario()
	require.Len(t, def.Steps, 9)
	want := []int{100, 100, 100, 1500, 200, 100, 5000, 500, 2000}
	for i, s := range def.Steps {
		assert.Equal(t, time.Duration(want[i])*time.Millisecond, s.DelayAfter, "step %d", i)
	}
	assert.Equal(t, ValveVector{}, def.Steps[len(def.Steps)-1].Valves)
	assert.Equal(t, 9600*time.Millisecond, def.Duration())
	assert.Equal(t, ModeEmergency, def.Mode)
}

func TestLookupScenario(t *testing.T) {
	def, ok := LookupScenario("o2feed")
	require.True(t, ok)
	assert.Equal(t, ModeO2Feed, def.Mode)
	assert.Equal(t, Vector(0, 1, 0, 0, 0, 0, 1, 0, 0), def.Steps[1].Valves)

	_, ok = LookupScenario("emergency")
	assert.False(t, ok, "emergency is not operator-startable by name")

	def.Steps[0].DelayAfter = time.Hour
	again, _ := LookupScenario("o2feed")
	assert.Equal(t, 200*time.Millisecond, again.Steps[0].DelayAfter, "catalog must not be aliased")
}

func TestScenarioNamesMatchModes(t *testing.T) {
	for _, name := range ScenarioNames() {
		def, ok := LookupScenario(name)
		require.True(t, ok)
		assert.Equal(t, name, string(def.Mode))
		assert.True(t, def.Mode.IsAutomation())
		assert.NotEmpty(t, def.Steps)
	}
	assert.Len(t, ScenarioNames(), 7)
}

func TestModeHelpers(t *testing.T) {
	m, err := ParseMode("burning")
	require.NoError(t, err)
	assert.Equal(t, ModeBurning, m)
	_, err = ParseMode("warp")
	assert.Error(t, err)
	assert.False(t, ModeIdle.IsAutomation())
	assert.False(t, ModeEmergency.IsAutomation())
	assert.Equal(t, 8, ModeEmergency.Index())
}
