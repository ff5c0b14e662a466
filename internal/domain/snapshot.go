package domain

import (
	"encoding/json"
	"time"
)

const (
	TemperatureChannels = 6
	PressureChannels    = 8
)

// Reading is a sensor value that may be unavailable. An unavailable
// reading keeps Value at zero so display paths can pad with it, but rule
// evaluation must check Valid.
type Reading struct {
	Value float64
	Valid bool
}

// Unavailable marks a missing sensor value.
var Unavailable = Reading{}

func Available(v float64) Reading { return Reading{Value: v, Valid: true} }

// ReadingFromPtr maps nil to Unavailable.
func ReadingFromPtr(p *float64) Reading {
	if p == nil {
		return Unavailable
	}
	return Available(*p)
}

func (r Reading) Get() (float64, bool) { return r.Value, r.Valid }

// OrZero substitutes zero for missing readings, for display and archive
// columns that cannot carry nulls.
func (r Reading) OrZero() float64 {
	if !r.Valid {
		return 0
	}
	return r.Value
}

func (r Reading) Ptr() *float64 {
	if !r.Valid {
		return nil
	}
	v := r.Value
	return &v
}

func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Ptr())
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	var p *float64
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ReadingFromPtr(p)
	return nil
}

// Snapshot is one normalized telemetry reading. Channel arrays are fixed
// length; values that the controller did not report are Unavailable.
type Snapshot struct {
	Temperatures      [TemperatureChannels]Reading `json:"temperatures"`
	Pressures         [PressureChannels]Reading    `json:"pressures"`
	ISP               Reading                      `json:"isp"`
	Thrust            Reading                      `json:"thrust"`
	OxygenConsumption Reading                      `json:"oxygen_consumption"`
	FuelConsumption   Reading                      `json:"fuel_consumption"`
	TotalImpulse      Reading                      `json:"total_impulse"`
	ExhaustVelocity   Reading                      `json:"exhaust_velocity"`
	Voltage           Reading                      `json:"voltage"`
	Timestamp         time.Time                    `json:"timestamp"`
}

// Pressure returns channel idx, treating out-of-range indices as
// unavailable.
func (s Snapshot) Pressure(idx int) Reading {
	if idx < 0 || idx >= PressureChannels {
		return Unavailable
	}
	return s.Pressures[idx]
}

func (s Snapshot) Temperature(idx int) Reading {
	if idx < 0 || idx >= TemperatureChannels {
		return Unavailable
	}
	return s.Temperatures[idx]
}

// PressureValues is the zero-padded form used by displays.
func (s Snapshot) PressureValues() []float64 {
	out := make([]float64, PressureChannels)
	for i, r := range s.Pressures {
		out[i] = r.OrZero()
	}
	return out
}

func (s Snapshot) TemperatureValues() []float64 {
	out := make([]float64, TemperatureChannels)
	for i, r := range s.Temperatures {
		out[i] = r.OrZero()
	}
	return out
}

// MetricNames lists the scalar channels in wire naming.
var MetricNames = []string{
	"isp", "thrust", "oxygen_consumption", "fuel_consumption",
	"total_impulse", "exhaust_velocity", "voltage",
}

func IsMetricName(name string) bool {
	for _, n := range MetricNames {
		if n == name {
			return true
		}
	}
	return false
}

// Metrics returns the named scalar channels in wire naming.
func (s Snapshot) Metrics() map[string]Reading {
	return map[string]Reading{
		"isp":                s.ISP,
		"thrust":             s.Thrust,
		"oxygen_consumption": s.OxygenConsumption,
		"fuel_consumption":   s.FuelConsumption,
		"total_impulse":      s.TotalImpulse,
		"exhaust_velocity":   s.ExhaustVelocity,
		"voltage":            s.Voltage,
	}
}

// SetMetric assigns a scalar channel by wire name. It reports false for
// unknown names.
func (s *Snapshot) SetMetric(name string, r Reading) bool {
	switch name {
	case "isp":
		s.ISP = r
	case "thrust":
		s.Thrust = r
	case "oxygen_consumption":
		s.OxygenConsumption = r
	case "fuel_consumption":
		s.FuelConsumption = r
	case "total_impulse":
		s.TotalImpulse = r
	case "exhaust_velocity":
		s.ExhaustVelocity = r
	case "voltage":
		s.Voltage = r
	default:
		return false
	}
	return true
}
