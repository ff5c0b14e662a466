package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ghalamif/AegisFeed/internal/domain"
)

type outbound struct {
	Type    string   `json:"type" msgpack:"type"`
	Valves  []int    `json:"valves,omitempty" msgpack:"valves,omitempty"`
	Mode    string   `json:"mode,omitempty" msgpack:"mode,omitempty"`
	MotorID *int     `json:"motor_id,omitempty" msgpack:"motor_id,omitempty"`
	Angle   *float64 `json:"angle,omitempty" msgpack:"angle,omitempty"`
}

// Encode renders a command as a controller frame. Valves travel as 0/1
// integers.
func Encode(cmd domain.Command, binary bool) ([]byte, error) {
	out := outbound{Type: string(cmd.Kind)}
	switch cmd.Kind {
	case domain.CommandGetSensors:
	case domain.CommandValves:
		out.Valves = cmd.Valves.Ints()
	case domain.CommandMode:
		out.Mode = string(cmd.Mode)
	case domain.CommandStepMotor:
		id, angle := cmd.MotorID, cmd.Angle
		out.MotorID, out.Angle = &id, &angle
	default:
		return nil, fmt.Errorf("encode: unknown command kind %q", cmd.Kind)
	}
	if binary {
		return msgpack.Marshal(&out)
	}
	return json.Marshal(&out)
}
