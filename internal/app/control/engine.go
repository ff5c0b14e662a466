package control

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/AegisFeed/internal/adapters/observability"
	"github.com/ghalamif/AegisFeed/internal/app/audit"
	"github.com/ghalamif/AegisFeed/internal/clock"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrValveOutOfRange = errors.New("valve index out of range")
)

// State is a copy of the engine's view for display and the operator API.
type State struct {
	Valves   domain.ValveVector  `json:"valves"`
	Mode     domain.SystemMode   `json:"mode"`
	Scenario string              `json:"scenario,omitempty"`
	Step     int                 `json:"step,omitempty"`
	Steps    int                 `json:"steps,omitempty"`
	Reported *domain.ValveVector `json:"reported,omitempty"`
}

// Locked reports whether operator commands are refused.
func (s State) Locked() bool { return s.Mode == domain.ModeEmergency }

// Engine serializes admissions, scenario steps and mode transitions
// behind one mutex. Scenario timers re-enter through the same lock and
// carry the token of the run that armed them; a token that no longer
// matches the current run is ignored.
type Engine struct {
	mu        sync.Mutex
	clock     clock.Clock
	outbox    ports.CommandQueue
	obs       ports.Observability
	audit     *audit.Ring
	st        GateState
	run       *scenarioRun
	tokens    uint64
	reported  *domain.ValveVector
	listeners []func(State)
}

type scenarioRun struct {
	token  uint64
	def    domain.ScenarioDefinition
	source domain.Source
	next   int
	timer  *clock.Timer
}

func NewEngine(clk clock.Clock, outbox ports.CommandQueue, obs ports.Observability, log *audit.Ring) *Engine {
	if clk == nil {
		clk = clock.Real()
	}
	if obs == nil {
		obs = observability.Nop{}
	}
	if log == nil {
		log = audit.NewRing(audit.DefaultSize, clk)
	}
	return &Engine{
		clock:  clk,
		outbox: outbox,
		obs:    obs,
		audit:  log,
		st:     GateState{Mode: domain.ModeIdle},
	}
}

// Subscribe registers fn for state changes. fn runs outside the engine
// lock and may call back into the engine.
func (e *Engine) Subscribe(fn func(State)) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Submit runs one intent through the gate.
func (e *Engine) Submit(in domain.CommandIntent) Decision {
	e.mu.Lock()
	d := e.admitLocked(in)
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
	return d
}

// SubmitAll admits intents in order under a single lock hold, so no
// scenario step can interleave.
func (e *Engine) SubmitAll(ins []domain.CommandIntent) []Decision {
	if len(ins) == 0 {
		return nil
	}
	out := make([]Decision, len(ins))
	e.mu.Lock()
	for i, in := range ins {
		out[i] = e.admitLocked(in)
	}
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
	return out
}

// SetValve is the operator's single-valve command.
func (e *Engine) SetValve(id domain.ValveID, open bool) (Decision, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrValveOutOfRange, int(id))
	}
	return e.Submit(domain.SetValve(domain.SourceManual, id, open)), nil
}

// ToggleValve flips one valve relative to the state at admission time.
func (e *Engine) ToggleValve(id domain.ValveID) (Decision, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrValveOutOfRange, int(id))
	}
	e.mu.Lock()
	d := e.admitLocked(domain.SetValve(domain.SourceManual, id, !e.st.Valves.IsOpen(id)))
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
	return d, nil
}

// StartScenario looks up a built-in scenario by name and runs it.
func (e *Engine) StartScenario(name string) (Decision, error) {
	def, ok := domain.LookupScenario(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return e.Run(def), nil
}

// Run switches to the definition's mode and applies its steps in order.
// Any run in progress is cancelled first. In emergency mode the request
// is refused and RejectedEmergency returned.
func (e *Engine) Run(def domain.ScenarioDefinition) Decision {
	e.mu.Lock()
	if e.st.Mode == domain.ModeEmergency {
		e.reassertLocked("scenario " + def.Name)
		st := e.stateLocked()
		e.mu.Unlock()
		e.notify(st)
		return RejectedEmergency
	}
	e.cancelRunLocked()
	e.setModeLocked(def.Mode)
	e.audit.Addf("scenario %s started", def.Name)
	e.obs.LogInfo("scenario started", ports.F("scenario", def.Name), ports.F("steps", len(def.Steps)))
	e.startRunLocked(def, domain.SourceScenario)
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
	return Admitted
}

// TriggerEmergency enters emergency mode and starts the shutdown
// sequence. While already in emergency it only re-asserts the mode.
func (e *Engine) TriggerEmergency() {
	e.mu.Lock()
	if e.st.Mode == domain.ModeEmergency {
		e.reassertLocked("emergency trigger")
		st := e.stateLocked()
		e.mu.Unlock()
		e.notify(st)
		return
	}
	e.cancelRunLocked()
	e.setModeLocked(domain.ModeEmergency)
	e.audit.Add("EMERGENCY SHUTDOWN initiated")
	e.obs.LogWarn("emergency shutdown initiated", ports.F("valves", e.st.Valves.String()))
	e.startRunLocked(domain.EmergencyScenario(), domain.SourceEmergency)
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
}

// Reset cancels any run, closes every valve and returns to idle. It
// always sends the reset frames, even when nothing changed.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.cancelRunLocked()
	e.st.Valves = domain.ValveVector{}
	e.setModeLocked(domain.ModeIdle)
	e.enqueueLocked(domain.ValveCommand(domain.ValveVector{}))
	e.obs.IncCounter(observability.ValveCommands, 1)
	e.audit.Add("system reset: all valves closed, mode idle")
	e.obs.LogInfo("system reset")
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
}

// SendStepMotor forwards a step motor command. It does not touch valve
// state and is not gated.
func (e *Engine) SendStepMotor(motorID int, angle float64) {
	e.mu.Lock()
	e.enqueueLocked(domain.StepMotorCommand(motorID, angle))
	e.audit.Addf("step motor %d -> %.1f°", motorID, angle)
	e.mu.Unlock()
}

// RequestSensors asks the controller for an immediate sensor_data frame.
func (e *Engine) RequestSensors() {
	e.mu.Lock()
	e.enqueueLocked(domain.SensorRequest())
	e.mu.Unlock()
}

// ObserveReported records the vector the controller says it applied. It
// is never adopted; a mismatch is only logged.
func (e *Engine) ObserveReported(v domain.ValveVector) {
	e.mu.Lock()
	e.reported = &v
	diverged := v != e.st.Valves
	want := e.st.Valves
	e.mu.Unlock()
	if diverged {
		e.obs.LogWarn("controller valve state diverges",
			ports.F("reported", v.String()), ports.F("commanded", want.String()))
	}
}

func (e *Engine) Audit() *audit.Ring { return e.audit }

func (e *Engine) admitLocked(in domain.CommandIntent) Decision {
	d, next := Admit(in, e.st, e.clock.Now())
	switch d {
	case RejectedEmergency:
		e.reassertLocked(in.Source.String() + " command")
		return d
	case RejectedDebounce:
		e.obs.IncCounter(observability.IntentsRejected, 1)
		e.obs.LogInfo("manual command debounced", ports.F("valve", in.Valve.String()))
		e.audit.Addf("valve %s: command ignored (debounce)", in.Valve)
		return d
	}

	e.obs.IncCounter(observability.IntentsAdmitted, 1)
	e.st = next
	if d == Admitted {
		e.enqueueLocked(domain.ValveCommand(next.Valves))
		e.obs.IncCounter(observability.ValveCommands, 1)
		if in.Source == domain.SourceManual && !in.Whole {
			e.audit.Addf("valve %s %s", in.Valve, openWord(in.Open))
		}
	}
	return d
}

func (e *Engine) reassertLocked(what string) {
	e.st.Mode = domain.ModeEmergency
	e.obs.IncCounter(observability.IntentsRejected, 1)
	e.obs.LogWarn("rejected during emergency", ports.F("command", what))
	e.audit.Addf("emergency active: %s rejected", what)
}

func (e *Engine) setModeLocked(m domain.SystemMode) {
	e.st.Mode = m
	e.obs.SetGauge(observability.SystemModeGauge, float64(m.Index()))
	e.enqueueLocked(domain.ModeCommand(m))
}

func (e *Engine) enqueueLocked(cmd domain.Command) {
	if e.outbox == nil {
		return
	}
	if !e.outbox.Enqueue(cmd) {
		e.obs.IncCounter(observability.OutboxDropped, 1)
		e.obs.LogError("outbox full", fmt.Errorf("dropped %s", cmd.Kind))
		return
	}
	e.obs.SetGauge(observability.OutboxLength, float64(e.outbox.Len()))
}

func (e *Engine) startRunLocked(def domain.ScenarioDefinition, src domain.Source) {
	e.tokens++
	r := &scenarioRun{token: e.tokens, def: def, source: src}
	e.run = r
	e.advanceLocked(r)
}

// advanceLocked applies steps until one carries a delay, then arms the
// timer for the next one. Zero-delay steps never leave the lock.
func (e *Engine) advanceLocked(r *scenarioRun) {
	for r.next < len(r.def.Steps) {
		step := r.def.Steps[r.next]
		r.next++
		e.admitLocked(domain.SetVector(r.source, step.Valves))
		if step.DelayAfter > 0 {
			r.timer = e.arm(step.DelayAfter, r.token, e.onStepTimer)
			return
		}
	}

	if r.source == domain.SourceEmergency {
		r.timer = e.arm(domain.EmergencyCooldown, r.token, e.onCooldown)
		return
	}
	e.run = nil
	e.audit.Addf("scenario %s complete", r.def.Name)
	e.obs.LogInfo("scenario complete", ports.F("scenario", r.def.Name))
}

// arm schedules fn with a positive delay; the fake clock runs
// non-positive delays inline, which would re-enter the held lock.
func (e *Engine) arm(d time.Duration, token uint64, fn func(uint64)) *clock.Timer {
	if d <= 0 {
		d = time.Nanosecond
	}
	return e.clock.AfterFunc(d, func() { fn(token) })
}

func (e *Engine) onStepTimer(token uint64) {
	e.mu.Lock()
	r := e.run
	if r == nil || r.token != token {
		e.mu.Unlock()
		return
	}
	r.timer = nil
	e.advanceLocked(r)
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
}

// onCooldown ends the emergency run and releases the operator lock.
func (e *Engine) onCooldown(token uint64) {
	e.mu.Lock()
	r := e.run
	if r == nil || r.token != token {
		e.mu.Unlock()
		return
	}
	e.run = nil
	e.setModeLocked(domain.ModeIdle)
	e.audit.Add("emergency sequence complete, mode idle")
	e.obs.LogInfo("emergency sequence complete")
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
}

func (e *Engine) cancelRunLocked() {
	r := e.run
	if r == nil {
		return
	}
	e.run = nil
	if r.timer != nil {
		r.timer.Stop()
	}
	if r.next < len(r.def.Steps) || r.source == domain.SourceEmergency {
		e.audit.Addf("scenario %s cancelled", r.def.Name)
		e.obs.LogInfo("scenario cancelled", ports.F("scenario", r.def.Name), ports.F("applied", r.next))
	}
}

func (e *Engine) stateLocked() State {
	st := State{Valves: e.st.Valves, Mode: e.st.Mode}
	if e.run != nil {
		st.Scenario = e.run.def.Name
		st.Step = e.run.next
		st.Steps = len(e.run.def.Steps)
	}
	if e.reported != nil {
		v := *e.reported
		st.Reported = &v
	}
	return st
}

func (e *Engine) notify(st State) {
	e.mu.Lock()
	ls := e.listeners
	e.mu.Unlock()
	for _, fn := range ls {
		fn(st)
	}
}

func openWord(open bool) string {
	if open {
		return "opened"
	}
	return "closed"
}
