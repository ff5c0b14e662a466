package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValveCount is the number of solenoid valves on the feed-system rig.
const ValveCount = 9

// ValveID indexes a valve inside a ValveVector.
type ValveID int

const (
	Relief1 ValveID = iota
	GOX1
	Purge1
	Purge2
	Fuel1
	Relief2
	GOX2
	Fuel2
	Ignition
)

var valveNames = [ValveCount]string{
	"RELIEF1", "GOX1", "PURGE1", "PURGE2", "FUEL1", "RELIEF2", "GOX2", "FUEL2", "IGNITION",
}

func (id ValveID) Valid() bool { return id >= 0 && int(id) < ValveCount }

func (id ValveID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("VALVE(%d)", int(id))
	}
	return valveNames[id]
}

// ParseValveID accepts a semantic name (case-insensitive) or a 1-based
// valve number as printed on the rig panel.
func ParseValveID(s string) (ValveID, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range valveNames {
		if n == name {
			return ValveID(i), nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(name, "%d", &n); err == nil && n >= 1 && n <= ValveCount {
		return ValveID(n - 1), nil
	}
	return 0, fmt.Errorf("unknown valve %q", s)
}

// ValveVector is the open/closed state of every valve. The array type
// pins the length to ValveCount and each entry to a binary value.
type ValveVector [ValveCount]bool

// Vector builds a ValveVector from 0/1 literals. It panics unless exactly
// ValveCount bits are given, which keeps scenario tables honest.
func Vector(bits ...int) ValveVector {
	if len(bits) != ValveCount {
		panic(fmt.Sprintf("domain: valve vector needs %d bits, got %d", ValveCount, len(bits)))
	}
	return VectorFromInts(bits)
}

// VectorFromInts converts a wire array, truncating or zero-padding to
// ValveCount. Any non-zero entry counts as open.
func VectorFromInts(bits []int) ValveVector {
	var v ValveVector
	for i := 0; i < ValveCount && i < len(bits); i++ {
		v[i] = bits[i] != 0
	}
	return v
}

func (v ValveVector) With(id ValveID, open bool) ValveVector {
	v[id] = open
	return v
}

func (v ValveVector) IsOpen(id ValveID) bool { return v[id] }

// Ints renders the vector in the controller's 0/1 wire form.
func (v ValveVector) Ints() []int {
	out := make([]int, ValveCount)
	for i, open := range v {
		if open {
			out[i] = 1
		}
	}
	return out
}

// String renders the vector as a bit string, e.g. "010010110".
func (v ValveVector) String() string {
	var b strings.Builder
	b.Grow(ValveCount)
	for _, open := range v {
		if open {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (v ValveVector) OpenValves() []ValveID {
	var ids []ValveID
	for i, open := range v {
		if open {
			ids = append(ids, ValveID(i))
		}
	}
	return ids
}

func (v ValveVector) MarshalJSON() ([]byte, error) {
	return []byte("[" + strings.Join(strings.Split(v.String(), ""), ",") + "]"), nil
}

// UnmarshalJSON accepts 0/1 numbers or booleans.
func (v *ValveVector) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out ValveVector
	for i := 0; i < ValveCount && i < len(raw); i++ {
		switch b := raw[i].(type) {
		case bool:
			out[i] = b
		case float64:
			out[i] = b != 0
		default:
			return fmt.Errorf("valve %d: unsupported value %v", i, raw[i])
		}
	}
	*v = out
	return nil
}
