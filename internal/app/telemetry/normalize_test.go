package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ghalamif/AegisFeed/internal/adapters/protocol"
	"github.com/ghalamif/AegisFeed/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestNormalizePadsAndTruncates(t *testing.T) {
	recv := time.Unix(50, 0)
	s := Normalize(protocol.SensorPayload{
		Pressures:    []*float64{f(1), nil, f(0)},
		Temperatures: []*float64{f(1), f(2), f(3), f(4), f(5), f(6), f(7), f(8)},
		Metrics:      map[string]*float64{"thrust": f(10), "voltage": nil},
	}, recv)

	assert.Equal(t, domain.Available(1), s.Pressures[0])
	assert.Equal(t, domain.Unavailable, s.Pressures[1])
	assert.Equal(t, domain.Available(0), s.Pressures[2], "zero is a reading")
	assert.Equal(t, domain.Unavailable, s.Pressures[7])
	assert.Equal(t, domain.Available(6), s.Temperatures[5])
	assert.Equal(t, domain.Available(10), s.Thrust)
	assert.False(t, s.Voltage.Valid)
	assert.False(t, s.ISP.Valid)
	assert.Equal(t, recv, s.Timestamp)
}

func TestNormalizeLegacyTemperature(t *testing.T) {
	s := Normalize(protocol.SensorPayload{Temperature: f(21.5)}, time.Time{})
	for i, r := range s.Temperatures {
		assert.Equal(t, domain.Available(21.5), r, "channel %d", i)
	}

	// an explicit array wins over the scalar
	s = Normalize(protocol.SensorPayload{Temperature: f(21.5), Temperatures: []*float64{f(3)}}, time.Time{})
	assert.Equal(t, domain.Available(3), s.Temperatures[0])
	assert.Equal(t, domain.Unavailable, s.Temperatures[1])
}

func TestNormalizeIsIdempotent(t *testing.T) {
	ts := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	first := Normalize(protocol.SensorPayload{
		Pressures:   []*float64{f(3), nil, f(4)},
		Temperature: f(19),
		Metrics:     map[string]*float64{"isp": f(210.5)},
		Timestamp:   &ts,
	}, time.Unix(0, 0))

	second := Normalize(PayloadOf(first), time.Unix(99, 0))
	assert.Equal(t, first, second)
}
