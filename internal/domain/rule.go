package domain

import (
	"errors"
	"fmt"
)

type RuleAction string

const (
	ActionOpen  RuleAction = "open"
	ActionClose RuleAction = "close"
)

// TargetOpen is the valve state the action drives towards.
func (a RuleAction) TargetOpen() bool { return a == ActionOpen }

// AutomationRule opens or closes a valve when a pressure channel crosses
// a threshold: open rules fire at or above it, close rules at or below.
type AutomationRule struct {
	ID             string     `yaml:"id" json:"id"`
	PressureSensor int        `yaml:"pressure_sensor" json:"pressure_sensor"`
	Threshold      float64    `yaml:"threshold" json:"threshold"`
	Valve          ValveID    `yaml:"valve" json:"valve"`
	Action         RuleAction `yaml:"action" json:"action"`
	Active         bool       `yaml:"active" json:"active"`
}

var ErrInvalidRule = errors.New("invalid automation rule")

func (r AutomationRule) Validate() error {
	if r.PressureSensor < 0 || r.PressureSensor >= PressureChannels {
		return fmt.Errorf("%w: pressure sensor %d out of range", ErrInvalidRule, r.PressureSensor)
	}
	if !r.Valve.Valid() {
		return fmt.Errorf("%w: valve %d out of range", ErrInvalidRule, int(r.Valve))
	}
	if r.Action != ActionOpen && r.Action != ActionClose {
		return fmt.Errorf("%w: action %q", ErrInvalidRule, r.Action)
	}
	return nil
}

// Triggered reports whether pressure satisfies the rule's condition.
func (r AutomationRule) Triggered(pressure float64) bool {
	if r.Action == ActionOpen {
		return pressure >= r.Threshold
	}
	return pressure <= r.Threshold
}
