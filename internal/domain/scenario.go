package domain

import (
	"sort"
	"time"
)

// ScenarioStep applies Valves, then holds for DelayAfter before the next
// step. A zero delay moves on immediately.
type ScenarioStep struct {
	Valves     ValveVector
	DelayAfter time.Duration
}

// ScenarioDefinition is an ordered valve sequence bound to the mode it
// runs under.
type ScenarioDefinition struct {
	Name  string
	Mode  SystemMode
	Steps []ScenarioStep
}

// Duration is the sum of all step delays.
func (d ScenarioDefinition) Duration() time.Duration {
	var total time.Duration
	for _, s := range d.Steps {
		total += s.DelayAfter
	}
	return total
}

// EmergencyCooldown is held after the last emergency step before the rig
// drops back to idle and the operator lock is released.
const EmergencyCooldown = 2000 * time.Millisecond

func step(delayMS int, bits ...int) ScenarioStep {
	return ScenarioStep{Valves: Vector(bits...), DelayAfter: time.Duration(delayMS) * time.Millisecond}
}

var emergencyScenario = ScenarioDefinition{
	Name: "emergency",
	Mode: ModeEmergency,
	Steps: []ScenarioStep{
		// ignition off, oxidizer/fuel mains closed in stages
		step(100, 0, 1, 0, 0, 1, 0, 1, 1, 0),
		step(100, 0, 1, 0, 0, 1, 0, 0, 0, 0),
		step(100, 0, 0, 0, 0, 0, 0, 0, 0, 0),
		// vent through both relief valves
		step(1500, 1, 0, 0, 0, 0, 1, 0, 0, 0),
		step(200, 0, 0, 0, 0, 0, 0, 0, 0, 0),
		// purge both lines
		step(100, 0, 0, 0, 0, 0, 0, 1, 1, 0),
		step(5000, 0, 0, 1, 1, 0, 0, 1, 1, 0),
		step(500, 0, 0, 0, 0, 0, 0, 1, 1, 0),
		step(2000, 0, 0, 0, 0, 0, 0, 0, 0, 0),
	},
}

var scenarios = map[string]ScenarioDefinition{
	"o2feed": {Name: "o2feed", Mode: ModeO2Feed, Steps: []ScenarioStep{
		step(200, 0, 1, 0, 0, 0, 0, 0, 0, 0),
		step(0, 0, 1, 0, 0, 0, 0, 1, 0, 0),
	}},
	"fuelfeed": {Name: "fuelfeed", Mode: ModeFuelFeed, Steps: []ScenarioStep{
		step(3000, 0, 0, 0, 0, 1, 0, 0, 0, 0),
		step(0, 0, 0, 0, 0, 1, 0, 0, 1, 0),
	}},
	"o2cleaning": {Name: "o2cleaning", Mode: ModeO2Cleaning, Steps: []ScenarioStep{
		step(200, 0, 0, 0, 0, 0, 0, 1, 0, 0),
		step(5000, 0, 0, 1, 0, 0, 0, 1, 0, 0),
		step(200, 0, 0, 0, 0, 0, 0, 1, 0, 0),
		step(0, 0, 0, 0, 0, 0, 0, 0, 0, 0),
	}},
	"fuelcleaning": {Name: "fuelcleaning", Mode: ModeFuelCleaning, Steps: []ScenarioStep{
		step(200, 0, 0, 0, 0, 0, 0, 0, 1, 0),
		step(5000, 0, 0, 0, 1, 0, 0, 0, 1, 0),
		step(200, 0, 0, 0, 0, 0, 0, 0, 1, 0),
		step(0, 0, 0, 0, 0, 0, 0, 0, 0, 0),
	}},
	"preburning": {Name: "preburning", Mode: ModePreBurning, Steps: []ScenarioStep{
		step(0, 0, 1, 0, 0, 1, 0, 0, 0, 0),
	}},
	"burningstart": {Name: "burningstart", Mode: ModeBurningStart, Steps: []ScenarioStep{
		step(0, 0, 1, 0, 0, 1, 0, 0, 0, 1),
	}},
	"burning": {Name: "burning", Mode: ModeBurning, Steps: []ScenarioStep{
		step(500, 0, 1, 0, 0, 1, 0, 1, 0, 1),
		step(0, 0, 1, 0, 0, 1, 0, 1, 1, 1),
	}},
}

// EmergencyScenario returns the fixed shutdown sequence.
func EmergencyScenario() ScenarioDefinition { return cloneScenario(emergencyScenario) }

// LookupScenario finds an operator-startable scenario by name. The
// emergency sequence is not startable this way.
func LookupScenario(name string) (ScenarioDefinition, bool) {
	def, ok := scenarios[name]
	if !ok {
		return ScenarioDefinition{}, false
	}
	return cloneScenario(def), true
}

// ScenarioNames lists operator-startable scenarios alphabetically.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cloneScenario(def ScenarioDefinition) ScenarioDefinition {
	def.Steps = append([]ScenarioStep(nil), def.Steps...)
	return def
}
