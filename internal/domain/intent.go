package domain

// Source tags where a command intent came from.
type Source int

const (
	SourceManual Source = iota
	SourceScenario
	SourceAutomation
	SourceEmergency
)

func (s Source) String() string {
	switch s {
	case SourceManual:
		return "manual"
	case SourceScenario:
		return "scenario"
	case SourceAutomation:
		return "automation"
	case SourceEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// CommandIntent asks the arbitration gate for a valve change. It targets
// either a single valve or the whole vector.
type CommandIntent struct {
	Source Source
	Whole  bool
	Vector ValveVector
	Valve  ValveID
	Open   bool
}

func SetValve(src Source, id ValveID, open bool) CommandIntent {
	return CommandIntent{Source: src, Valve: id, Open: open}
}

func SetVector(src Source, v ValveVector) CommandIntent {
	return CommandIntent{Source: src, Whole: true, Vector: v}
}

// Target resolves the full vector the intent asks for given the current
// one.
func (c CommandIntent) Target(current ValveVector) ValveVector {
	if c.Whole {
		return c.Vector
	}
	return current.With(c.Valve, c.Open)
}
