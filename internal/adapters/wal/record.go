package wal

import (
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/ghalamif/AegisFeed/internal/domain"
)

// record is the on-disk body of one WAL entry. Missing readings are CBOR
// null so replay keeps "unavailable" distinct from zero.
type record struct {
	Timestamp    int64              `cbor:"1,keyasint"`
	Pressures    []*float64         `cbor:"2,keyasint"`
	Temperatures []*float64         `cbor:"3,keyasint"`
	Metrics      map[string]float64 `cbor:"4,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wal: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("wal: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeSnapshot(s *domain.Snapshot) ([]byte, error) {
	rec := record{
		Timestamp:    s.Timestamp.UnixNano(),
		Pressures:    make([]*float64, domain.PressureChannels),
		Temperatures: make([]*float64, domain.TemperatureChannels),
	}
	for i, r := range s.Pressures {
		rec.Pressures[i] = r.Ptr()
	}
	for i, r := range s.Temperatures {
		rec.Temperatures[i] = r.Ptr()
	}
	for name, r := range s.Metrics() {
		if v, ok := r.Get(); ok {
			if rec.Metrics == nil {
				rec.Metrics = make(map[string]float64, 7)
			}
			rec.Metrics[name] = v
		}
	}
	return encMode.Marshal(rec)
}

func decodeSnapshot(b []byte) (*domain.Snapshot, error) {
	var rec record
	if err := decMode.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	s := &domain.Snapshot{Timestamp: time.Unix(0, rec.Timestamp).UTC()}
	for i := 0; i < domain.PressureChannels && i < len(rec.Pressures); i++ {
		s.Pressures[i] = domain.ReadingFromPtr(rec.Pressures[i])
	}
	for i := 0; i < domain.TemperatureChannels && i < len(rec.Temperatures); i++ {
		s.Temperatures[i] = domain.ReadingFromPtr(rec.Temperatures[i])
	}
	for name, v := range rec.Metrics {
		s.SetMetric(name, domain.Available(v))
	}
	return s, nil
}
