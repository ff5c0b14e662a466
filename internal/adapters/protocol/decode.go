package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ghalamif/AegisFeed/internal/domain"
)

// timestampLayouts covers RFC 3339 and the zone-less ISO form some
// controller builds emit, read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Decode parses a binary (MessagePack) or text (JSON) frame.
func Decode(data []byte, binary bool) (Frame, error) {
	var m map[string]any
	var err error
	if binary {
		err = msgpack.Unmarshal(data, &m)
	} else {
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m == nil {
		return Frame{}, fmt.Errorf("%w: empty message", ErrMalformed)
	}
	return parse(m)
}

func parse(m map[string]any) (Frame, error) {
	typ, _ := m["type"].(string)
	f := Frame{Kind: Kind(typ)}
	switch f.Kind {
	case KindSensorData:
		body := m
		if inner, ok := asMap(m["data"]); ok {
			body = inner
		}
		p, err := parseSensor(body)
		if err != nil {
			return Frame{}, err
		}
		f.Sensor = p
	case KindValveResponse, KindValveState:
		f.Success = asBool(m["success"])
		if raw, ok := m["valves"]; ok && raw != nil {
			v, err := parseValves(raw)
			if err != nil {
				return Frame{}, err
			}
			f.Valves = &v
		} else if f.Kind == KindValveState {
			return Frame{}, fmt.Errorf("%w: valve_state without valves", ErrMalformed)
		}
	case KindStepMotorResponse:
		f.Success = asBool(m["success"])
		if id, ok := toFloat(m["motor_id"]); ok {
			f.MotorID = int(id)
		}
		if a, ok := toFloat(m["angle"]); ok {
			f.Angle = a
		}
	case KindError:
		f.Message = fmt.Sprint(m["data"])
		if s, ok := m["data"].(string); ok {
			f.Message = s
		}
	default:
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return f, nil
}

func parseSensor(m map[string]any) (*SensorPayload, error) {
	p := &SensorPayload{Metrics: make(map[string]*float64)}
	var err error
	if p.Temperatures, err = parseReadings(m, "temperatures"); err != nil {
		return nil, err
	}
	if p.Pressures, err = parseReadings(m, "pressures"); err != nil {
		return nil, err
	}
	if p.Temperature, err = parseScalar(m, "temperature"); err != nil {
		return nil, err
	}
	for _, name := range domain.MetricNames {
		v, err := parseScalar(m, name)
		if err != nil {
			return nil, err
		}
		if v != nil {
			p.Metrics[name] = v
		}
	}
	p.Timestamp = parseTimestamp(m["timestamp"])
	return p, nil
}

func parseReadings(m map[string]any, key string) ([]*float64, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want array", ErrMalformed, key, raw)
	}
	out := make([]*float64, len(arr))
	for i, e := range arr {
		if v, ok := toFloat(e); ok {
			out[i] = &v
		}
	}
	return out, nil
}

func parseScalar(m map[string]any, key string) (*float64, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	v, ok := toFloat(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want number", ErrMalformed, key, raw)
	}
	return &v, nil
}

func parseTimestamp(raw any) *time.Time {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
	case time.Time:
		t := v.UTC()
		return &t
	default:
		if secs, ok := toFloat(v); ok && secs > 0 {
			whole, frac := math.Modf(secs)
			t := time.Unix(int64(whole), int64(frac*1e9)).UTC()
			return &t
		}
	}
	return nil
}

func parseValves(raw any) (domain.ValveVector, error) {
	arr, ok := raw.([]any)
	if !ok {
		return domain.ValveVector{}, fmt.Errorf("%w: valves is %T, want array", ErrMalformed, raw)
	}
	bits := make([]int, len(arr))
	for i, e := range arr {
		if asBool(e) {
			bits[i] = 1
		}
	}
	return domain.VectorFromInts(bits), nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func asBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	f, ok := toFloat(v)
	return ok && f != 0
}

// toFloat widens the numeric kinds JSON and MessagePack decoders produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
