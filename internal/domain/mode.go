package domain

import "fmt"

// SystemMode is the rig's single active operating mode.
type SystemMode string

const (
	ModeIdle         SystemMode = "idle"
	ModeO2Feed       SystemMode = "o2feed"
	ModeFuelFeed     SystemMode = "fuelfeed"
	ModeO2Cleaning   SystemMode = "o2cleaning"
	ModeFuelCleaning SystemMode = "fuelcleaning"
	ModePreBurning   SystemMode = "preburning"
	ModeBurningStart SystemMode = "burningstart"
	ModeBurning      SystemMode = "burning"
	ModeEmergency    SystemMode = "emergency"
)

// Modes lists every mode in gauge order.
var Modes = []SystemMode{
	ModeIdle, ModeO2Feed, ModeFuelFeed, ModeO2Cleaning, ModeFuelCleaning,
	ModePreBurning, ModeBurningStart, ModeBurning, ModeEmergency,
}

func ParseMode(s string) (SystemMode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown system mode %q", s)
}

// IsAutomation reports whether the mode is driven by a named scenario.
func (m SystemMode) IsAutomation() bool {
	return m != ModeIdle && m != ModeEmergency && m.Index() >= 0
}

// Index is the mode's position in Modes, or -1.
func (m SystemMode) Index() int {
	for i, mode := range Modes {
		if mode == m {
			return i
		}
	}
	return -1
}
