// Package protocol is the controller wire contract: typed frames, either
// MessagePack (binary) or JSON (text).
package protocol

import (
	"errors"
	"time"

	"github.com/ghalamif/AegisFeed/internal/domain"
)

// Kind is the "type" discriminator of an inbound frame.
type Kind string

const (
	KindSensorData        Kind = "sensor_data"
	KindValveResponse     Kind = "valve_response"
	KindValveState        Kind = "valve_state"
	KindStepMotorResponse Kind = "step_motor_response"
	KindError             Kind = "error"
)

var (
	ErrUnknownType = errors.New("unknown frame type")
	ErrMalformed   = errors.New("malformed frame")
)

// SensorPayload is a sensor_data body as received, before normalization.
// Nil entries and absent keys are unavailable readings.
type SensorPayload struct {
	Temperatures []*float64
	Pressures    []*float64
	// Temperature is the legacy single-probe field.
	Temperature *float64
	Metrics     map[string]*float64
	Timestamp   *time.Time
}

// Frame is one decoded inbound message. Only the fields relevant to Kind
// are set.
type Frame struct {
	Kind    Kind
	Sensor  *SensorPayload
	Success bool
	Valves  *domain.ValveVector
	MotorID int
	Angle   float64
	Message string
}
