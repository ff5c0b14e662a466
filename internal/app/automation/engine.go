// Package automation evaluates pressure threshold rules against live
// telemetry and proposes valve intents. It never writes valve state.
package automation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ghalamif/AegisFeed/internal/app/audit"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

var ErrRuleNotFound = errors.New("automation rule not found")

type Engine struct {
	mu      sync.RWMutex
	enabled bool
	rules   []domain.AutomationRule
	audit   *audit.Ring
	obs     ports.Observability
}

// New validates rules and assigns ids to those without one. List order
// is evaluation order.
func New(enabled bool, rules []domain.AutomationRule, log *audit.Ring, obs ports.Observability) (*Engine, error) {
	e := &Engine{enabled: enabled, audit: log, obs: obs}
	for _, r := range rules {
		if _, err := e.Add(r); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

func (e *Engine) SetEnabled(on bool) {
	e.mu.Lock()
	e.enabled = on
	e.mu.Unlock()
	if e.obs != nil {
		e.obs.LogInfo("automation toggled", ports.F("enabled", on))
	}
}

// Rules returns a copy in evaluation order.
func (e *Engine) Rules() []domain.AutomationRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]domain.AutomationRule(nil), e.rules...)
}

// Add appends a rule. An empty ID is replaced with a fresh UUID.
func (e *Engine) Add(r domain.AutomationRule) (domain.AutomationRule, error) {
	if err := r.Validate(); err != nil {
		return domain.AutomationRule{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.indexLocked(r.ID) >= 0 {
		return domain.AutomationRule{}, fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidRule, r.ID)
	}
	e.rules = append(e.rules, r)
	return r, nil
}

// Update replaces the rule with the same ID in place.
func (e *Engine) Update(r domain.AutomationRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(r.ID)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrRuleNotFound, r.ID)
	}
	e.rules[i] = r
	return nil
}

func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrRuleNotFound, id)
	}
	e.rules = append(e.rules[:i], e.rules[i+1:]...)
	return nil
}

// Toggle flips a rule's active flag and returns the updated rule.
func (e *Engine) Toggle(id string) (domain.AutomationRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(id)
	if i < 0 {
		return domain.AutomationRule{}, fmt.Errorf("%w: %q", ErrRuleNotFound, id)
	}
	e.rules[i].Active = !e.rules[i].Active
	return e.rules[i], nil
}

func (e *Engine) indexLocked(id string) int {
	for i, r := range e.rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Evaluate walks the active rules in order against one snapshot. A rule
// fires only when its valve is not already in the target state in
// valves; intents keep rule order, so the gate applies the last one for
// a valve. The audit line records a request, the gate decides.
func (e *Engine) Evaluate(s domain.Snapshot, valves domain.ValveVector, mode domain.SystemMode) []domain.CommandIntent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.enabled || mode == domain.ModeEmergency {
		return nil
	}

	var out []domain.CommandIntent
	for _, r := range e.rules {
		if !r.Active {
			continue
		}
		p, ok := s.Pressure(r.PressureSensor).Get()
		if !ok {
			continue
		}
		if !r.Triggered(p) {
			continue
		}
		target := r.Action.TargetOpen()
		if valves.IsOpen(r.Valve) == target {
			continue
		}
		out = append(out, domain.SetValve(domain.SourceAutomation, r.Valve, target))
		if e.audit != nil {
			e.audit.Addf("automation: P%d %.3f bar -> valve %d (%s) %s requested",
				r.PressureSensor+1, p, int(r.Valve)+1, r.Valve, r.Action)
		}
	}
	return out
}
