package telemetry

import (
	"time"

	"github.com/ghalamif/AegisFeed/internal/adapters/protocol"
	"github.com/ghalamif/AegisFeed/internal/domain"
)

// Normalize maps a raw sensor payload onto the fixed-shape snapshot.
// Short arrays are padded with unavailable readings and long ones
// truncated. When no temperature array is present the legacy scalar
// temperature fills every channel. A payload without a timestamp gets
// received.
func Normalize(p protocol.SensorPayload, received time.Time) domain.Snapshot {
	var s domain.Snapshot

	for i := 0; i < domain.PressureChannels && i < len(p.Pressures); i++ {
		s.Pressures[i] = domain.ReadingFromPtr(p.Pressures[i])
	}

	if len(p.Temperatures) == 0 && p.Temperature != nil {
		for i := range s.Temperatures {
			s.Temperatures[i] = domain.Available(*p.Temperature)
		}
	} else {
		for i := 0; i < domain.TemperatureChannels && i < len(p.Temperatures); i++ {
			s.Temperatures[i] = domain.ReadingFromPtr(p.Temperatures[i])
		}
	}

	for name, v := range p.Metrics {
		s.SetMetric(name, domain.ReadingFromPtr(v))
	}

	if p.Timestamp != nil {
		s.Timestamp = *p.Timestamp
	} else {
		s.Timestamp = received
	}
	return s
}

// PayloadOf is the inverse of Normalize for an already normalized
// snapshot.
func PayloadOf(s domain.Snapshot) protocol.SensorPayload {
	p := protocol.SensorPayload{
		Pressures:    make([]*float64, domain.PressureChannels),
		Temperatures: make([]*float64, domain.TemperatureChannels),
		Metrics:      make(map[string]*float64),
	}
	for i, r := range s.Pressures {
		p.Pressures[i] = r.Ptr()
	}
	for i, r := range s.Temperatures {
		p.Temperatures[i] = r.Ptr()
	}
	for name, r := range s.Metrics() {
		if r.Valid {
			p.Metrics[name] = r.Ptr()
		}
	}
	ts := s.Timestamp
	p.Timestamp = &ts
	return p
}
