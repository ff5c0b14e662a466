package domain

import "time"

// CommandKind selects an outbound controller frame.
type CommandKind string

const (
	CommandGetSensors CommandKind = "get_sensors"
	CommandValves     CommandKind = "valve_command"
	CommandMode       CommandKind = "system_mode"
	CommandStepMotor  CommandKind = "step_motor_command"
)

// Command is one outbound frame for the controller.
type Command struct {
	Kind    CommandKind
	Valves  ValveVector
	Mode    SystemMode
	MotorID int
	Angle   float64
}

func ValveCommand(v ValveVector) Command { return Command{Kind: CommandValves, Valves: v} }
func ModeCommand(m SystemMode) Command { return Command{Kind: CommandMode, Mode: m} }
func SensorRequest() Command { return Command{Kind: CommandGetSensors} }
func StepMotorCommand(id int, angle float64) Command {
	return Command{Kind: CommandStepMotor, MotorID: id, Angle: angle}
}

// AuditEntry is one operator-facing log line.
type AuditEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}
