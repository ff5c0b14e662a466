package aegisfeed

import (
	"context"

	"github.com/ghalamif/AegisFeed/internal/adapters/observability"
	"github.com/ghalamif/AegisFeed/internal/adapters/protocol"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

func (s *Supervisor) onMessage(data []byte, binary bool) {
	s.telemetry.Ingest(data, binary)
}

func (s *Supervisor) onConnection(connected bool) {
	if !connected {
		s.audit.Add("controller connection lost")
		return
	}
	s.audit.Add("controller connected")
	s.engine.RequestSensors()

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if s.prober != nil && ctx != nil {
		go s.probeStatus(ctx)
	}
}

func (s *Supervisor) probeStatus(ctx context.Context) {
	st, err := s.prober.Probe(ctx)
	if err != nil {
		s.obs.LogWarn("controller status unavailable, assuming simulation", ports.F("error", err.Error()))
	}
	var sim float64
	if st.Simulated {
		sim = 1
	}
	s.obs.SetGauge(observability.SimulationActive, sim)

	s.mu.Lock()
	changed := !s.probed || s.simulated != st.Simulated
	s.simulated, s.probed = st.Simulated, true
	s.mu.Unlock()
	if changed {
		if st.Simulated {
			s.audit.Add("controller running in simulation mode")
		} else {
			s.audit.Add("controller driving hardware")
		}
	}
}

// onSnapshot runs on the telemetry tick for every published snapshot.
func (s *Supervisor) onSnapshot(snap domain.Snapshot) {
	st := s.engine.State()
	if intents := s.automation.Evaluate(snap, st.Valves, st.Mode); len(intents) > 0 {
		s.engine.SubmitAll(intents)
	}
	if s.recorder != nil {
		// ErrRecorderBusy is already counted
		_ = s.recorder.Record(snap)
	}
}

func (s *Supervisor) onFrame(f protocol.Frame) {
	switch f.Kind {
	case protocol.KindValveResponse:
		if f.Success {
			s.audit.Add("valve command succeeded")
		} else {
			s.audit.Add("valve command failed")
		}
		if f.Valves != nil {
			s.engine.ObserveReported(*f.Valves)
		}
	case protocol.KindValveState:
		if f.Valves != nil {
			s.engine.ObserveReported(*f.Valves)
		}
	case protocol.KindStepMotorResponse:
		if f.Success {
			s.audit.Addf("step motor %d command succeeded: %.1f°", f.MotorID, f.Angle)
		} else {
			s.audit.Addf("step motor %d command failed", f.MotorID)
		}
	case protocol.KindError:
		s.audit.Addf("controller error: %s", f.Message)
	}
}
