// Package status queries the controller's HTTP status endpoint.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Status is the controller's self-report. Simulated is true when the
// controller says so or when it could not be asked.
type Status struct {
	Simulated      bool   `json:"simulation_active"`
	SystemMode     string `json:"system_mode,omitempty"`
	STM32Connected bool   `json:"stm32_connected"`
	State          string `json:"status,omitempty"`
	Reachable      bool   `json:"-"`
}

type Prober struct {
	url    string
	client *http.Client
}

func NewProber(url string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Prober{url: url, client: &http.Client{Timeout: timeout}}
}

// Probe never fails: an unreachable endpoint or an undecodable body is
// reported as simulated along with the cause.
func (p *Prober) Probe(ctx context.Context) (Status, error) {
	st, err := p.fetch(ctx)
	if err != nil {
		return Status{Simulated: true}, err
	}
	st.Reachable = true
	return st, nil
}

func (p *Prober) fetch(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Status{}, fmt.Errorf("status request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("status get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Status{}, fmt.Errorf("status get: unexpected %s", resp.Status)
	}
	var raw struct {
		Simulated      *bool  `json:"simulation_active"`
		SystemMode     string `json:"system_mode"`
		STM32Connected bool   `json:"stm32_connected"`
		State          string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&raw); err != nil {
		return Status{}, fmt.Errorf("status decode: %w", err)
	}
	if raw.Simulated == nil {
		return Status{}, fmt.Errorf("status decode: simulation_active missing")
	}
	return Status{
		Simulated:      *raw.Simulated,
		SystemMode:     raw.SystemMode,
		STM32Connected: raw.STM32Connected,
		State:          raw.State,
	}, nil
}
