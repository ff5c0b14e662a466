package aegisfeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ghalamif/AegisFeed/internal/app/automation"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

// controlAPI is the operator HTTP surface. Every handler goes through the
// same Supervisor methods as embedded callers.
type controlAPI struct {
	s *Supervisor
}

func newControlAPI(s *Supervisor) *controlAPI { return &controlAPI{s: s} }

func (a *controlAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", a.handleState)
	mux.HandleFunc("GET /api/telemetry", a.handleTelemetry)
	mux.HandleFunc("POST /api/valves/{valve}", a.handleValve)
	mux.HandleFunc("GET /api/scenario", a.handleScenarios)
	mux.HandleFunc("POST /api/scenario/{name}", a.handleScenario)
	mux.HandleFunc("POST /api/emergency", a.handleEmergency)
	mux.HandleFunc("POST /api/reset", a.handleReset)
	mux.HandleFunc("POST /api/motor", a.handleMotor)
	mux.HandleFunc("GET /api/log", a.handleLog)
	mux.HandleFunc("GET /api/rules", a.handleRules)
	mux.HandleFunc("POST /api/rules", a.handleAddRule)
	mux.HandleFunc("PUT /api/rules/{id}", a.handleUpdateRule)
	mux.HandleFunc("DELETE /api/rules/{id}", a.handleRemoveRule)
	mux.HandleFunc("POST /api/rules/{id}/toggle", a.handleToggleRule)
	mux.HandleFunc("PUT /api/automation", a.handleAutomation)
}

type stateResponse struct {
	State      State  `json:"state"`
	Locked     bool   `json:"locked"`
	Connected  bool   `json:"connected"`
	Simulated  bool   `json:"simulation_active"`
	Automation bool   `json:"automation_enabled"`
	Decision   string `json:"decision,omitempty"`
}

type valveRequest struct {
	// Open nil toggles the valve.
	Open *bool `json:"open"`
}

type motorRequest struct {
	MotorID int     `json:"motor_id"`
	Angle   float64 `json:"angle"`
}

type automationRequest struct {
	Enabled bool `json:"enabled"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *controlAPI) snapshot(d *Decision) stateResponse {
	st := a.s.State()
	resp := stateResponse{
		State:      st,
		Locked:     st.Locked(),
		Connected:  a.s.Connected(),
		Simulated:  a.s.Simulated(),
		Automation: a.s.AutomationEnabled(),
	}
	if d != nil {
		resp.Decision = d.String()
	}
	return resp
}

func (a *controlAPI) handleState(w http.ResponseWriter, r *http.Request) {
	a.sendJSON(w, http.StatusOK, a.snapshot(nil))
}

func (a *controlAPI) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.s.Latest()
	if !ok {
		a.sendError(w, http.StatusNotFound, "no telemetry published yet")
		return
	}
	a.sendJSON(w, http.StatusOK, snap)
}

func (a *controlAPI) handleValve(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseValveID(r.PathValue("valve"))
	if err != nil {
		a.sendError(w, http.StatusBadRequest, "%v", err)
		return
	}

	var req valveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.sendError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	var d Decision
	if req.Open == nil {
		d, err = a.s.ToggleValve(id)
	} else {
		d, err = a.s.SetValve(id, *req.Open)
	}
	if err != nil {
		a.sendError(w, http.StatusBadRequest, "%v", err)
		return
	}
	a.sendDecision(w, d)
}

func (a *controlAPI) handleScenarios(w http.ResponseWriter, r *http.Request) {
	a.sendJSON(w, http.StatusOK, Scenarios())
}

func (a *controlAPI) handleScenario(w http.ResponseWriter, r *http.Request) {
	d, err := a.s.StartScenario(r.PathValue("name"))
	if errors.Is(err, ErrUnknownScenario) {
		a.sendError(w, http.StatusNotFound, "%v", err)
		return
	}
	if err != nil {
		a.sendError(w, http.StatusBadRequest, "%v", err)
		return
	}
	a.sendDecision(w, d)
}

func (a *controlAPI) handleEmergency(w http.ResponseWriter, r *http.Request) {
	a.s.TriggerEmergency()
	a.sendJSON(w, http.StatusAccepted, a.snapshot(nil))
}

func (a *controlAPI) handleReset(w http.ResponseWriter, r *http.Request) {
	a.s.Reset()
	a.sendJSON(w, http.StatusOK, a.snapshot(nil))
}

func (a *controlAPI) handleMotor(w http.ResponseWriter, r *http.Request) {
	var req motorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.sendError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	a.s.SendStepMotor(req.MotorID, req.Angle)
	w.WriteHeader(http.StatusAccepted)
}

func (a *controlAPI) handleLog(w http.ResponseWriter, r *http.Request) {
	a.sendJSON(w, http.StatusOK, a.s.Log())
}

func (a *controlAPI) handleRules(w http.ResponseWriter, r *http.Request) {
	a.sendJSON(w, http.StatusOK, a.s.Rules())
}

func (a *controlAPI) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var rule AutomationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		a.sendError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	added, err := a.s.AddRule(rule)
	if err != nil {
		a.sendRuleError(w, err)
		return
	}
	a.sendJSON(w, http.StatusCreated, added)
}

func (a *controlAPI) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var rule AutomationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		a.sendError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	rule.ID = r.PathValue("id")
	if err := a.s.UpdateRule(rule); err != nil {
		a.sendRuleError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, rule)
}

func (a *controlAPI) handleRemoveRule(w http.ResponseWriter, r *http.Request) {
	if err := a.s.RemoveRule(r.PathValue("id")); err != nil {
		a.sendRuleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *controlAPI) handleToggleRule(w http.ResponseWriter, r *http.Request) {
	rule, err := a.s.ToggleRule(r.PathValue("id"))
	if err != nil {
		a.sendRuleError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, rule)
}

func (a *controlAPI) handleAutomation(w http.ResponseWriter, r *http.Request) {
	var req automationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.sendError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	a.s.SetAutomationEnabled(req.Enabled)
	a.sendJSON(w, http.StatusOK, a.snapshot(nil))
}

// sendDecision answers 200 for admitted or unchanged commands and 409 when
// the gate refused them.
func (a *controlAPI) sendDecision(w http.ResponseWriter, d Decision) {
	code := http.StatusOK
	if d.Rejected() {
		code = http.StatusConflict
	}
	a.sendJSON(w, code, a.snapshot(&d))
}

func (a *controlAPI) sendRuleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, automation.ErrRuleNotFound):
		a.sendError(w, http.StatusNotFound, "%v", err)
	default:
		a.sendError(w, http.StatusBadRequest, "%v", err)
	}
}

func (a *controlAPI) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.s.obs.LogWarn("writing JSON response", ports.F("error", err.Error()))
	}
}

func (a *controlAPI) sendError(w http.ResponseWriter, code int, format string, args ...any) {
	a.sendJSON(w, code, errorResponse{Error: fmt.Sprintf(format, args...)})
}
