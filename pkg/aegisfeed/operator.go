package aegisfeed

import (
	"github.com/ghalamif/AegisFeed/internal/domain"
)

// State returns the authoritative valve vector, mode and scenario progress.
func (s *Supervisor) State() State { return s.engine.State() }

// Subscribe registers fn for every state change. fn runs outside the
// engine lock and must not block.
func (s *Supervisor) Subscribe(fn func(State)) { s.engine.Subscribe(fn) }

// SetValve asks the gate to set one valve. Operator commands are debounced
// and refused during emergency.
func (s *Supervisor) SetValve(id ValveID, open bool) (Decision, error) {
	return s.engine.SetValve(id, open)
}

func (s *Supervisor) ToggleValve(id ValveID) (Decision, error) {
	return s.engine.ToggleValve(id)
}

// StartScenario runs a named scenario, preempting any running one.
func (s *Supervisor) StartScenario(name string) (Decision, error) {
	return s.engine.StartScenario(name)
}

// RunScenario runs a caller-supplied definition under the same rules.
func (s *Supervisor) RunScenario(def ScenarioDefinition) Decision { return s.engine.Run(def) }

// TriggerEmergency preempts everything and runs the shutdown sequence.
func (s *Supervisor) TriggerEmergency() { s.engine.TriggerEmergency() }

// Reset returns the rig to idle with every valve closed.
func (s *Supervisor) Reset() { s.engine.Reset() }

func (s *Supervisor) SendStepMotor(motorID int, angle float64) {
	s.engine.SendStepMotor(motorID, angle)
}

// Ingest feeds one raw controller frame into the telemetry pipeline, as
// the websocket session does. Frames that fail to decode are counted and
// dropped.
func (s *Supervisor) Ingest(data []byte, binary bool) {
	s.telemetry.Ingest(data, binary)
}

// Latest returns the most recently published snapshot.
func (s *Supervisor) Latest() (Snapshot, bool) { return s.telemetry.Latest() }

// Log returns the operator audit log, newest first.
func (s *Supervisor) Log() []AuditEntry { return s.audit.Entries() }

func (s *Supervisor) Connected() bool {
	return s.session != nil && s.session.Connected()
}

// Simulated reports the last status probe result. It is true until a
// probe says otherwise.
func (s *Supervisor) Simulated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.probed || s.simulated
}

func (s *Supervisor) AutomationEnabled() bool { return s.automation.Enabled() }

func (s *Supervisor) SetAutomationEnabled(on bool) {
	s.automation.SetEnabled(on)
	if on {
		s.audit.Add("automation enabled")
	} else {
		s.audit.Add("automation disabled")
	}
}

func (s *Supervisor) Rules() []AutomationRule { return s.automation.Rules() }

// AddRule validates r and appends it. An empty id is generated.
func (s *Supervisor) AddRule(r AutomationRule) (AutomationRule, error) {
	return s.automation.Add(r)
}

func (s *Supervisor) UpdateRule(r AutomationRule) error { return s.automation.Update(r) }

func (s *Supervisor) RemoveRule(id string) error { return s.automation.Remove(id) }

func (s *Supervisor) ToggleRule(id string) (AutomationRule, error) {
	return s.automation.Toggle(id)
}

// Scenarios lists the names accepted by StartScenario.
func Scenarios() []string { return domain.ScenarioNames() }

// LookupScenario returns a copy of a named scenario's steps.
func LookupScenario(name string) (ScenarioDefinition, bool) { return domain.LookupScenario(name) }

// Modes lists every system mode in gauge order.
var Modes = domain.Modes
