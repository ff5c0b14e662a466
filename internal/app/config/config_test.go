package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisFeed/internal/domain"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `
controller:
  ws_url: ws://localhost:8000/ws
automation:
  enabled: true
  rules:
    - pressure_sensor: 1
      threshold: 5.5
      valve: 3
      action: open
      active: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Controller.ReconnectBackoff != 3*time.Second {
		t.Fatalf("expected reconnect backoff 3s, got %s", cfg.Controller.ReconnectBackoff)
	}
	if cfg.Telemetry.Tick != 2*time.Millisecond {
		t.Fatalf("expected tick default 2ms, got %s", cfg.Telemetry.Tick)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("expected default metrics addr :9100, got %s", cfg.Metrics.Addr)
	}
	if cfg.Recorder.Dir != "./data/wal" {
		t.Fatalf("expected default wal dir ./data/wal, got %s", cfg.Recorder.Dir)
	}
	require.Len(t, cfg.Automation.Rules, 1)
	require.Equal(t, domain.ActionOpen, cfg.Automation.Rules[0].Action)
	require.Equal(t, domain.ValveID(3), cfg.Automation.Rules[0].Valve)
}

func TestParseRequiresATelemetrySource(t *testing.T) {
	_, err := Parse([]byte("metrics:\n  addr: :9200\n"))
	require.Error(t, err)
}

func TestParseAcceptsOPCUAOnly(t *testing.T) {
	cfg, err := Parse([]byte(`
opcua:
  endpoint: opc.tcp://localhost:4840
  nodes:
    - node_id: "ns=2;s=Rig.P1"
      channel: Pressure
      index: 0
`))
	require.NoError(t, err)
	require.Equal(t, "pressure", cfg.OPCUA.Nodes[0].Channel)
}

func TestParseRecorderNeedsArchive(t *testing.T) {
	_, err := Parse([]byte(`
controller:
  ws_url: ws://rig/ws
recorder:
  enabled: true
`))
	require.Error(t, err)
}

func TestParseRejectsInvalidRule(t *testing.T) {
	_, err := Parse([]byte(`
controller:
  ws_url: ws://rig/ws
automation:
  rules:
    - pressure_sensor: 9
      threshold: 1
      valve: 0
      action: open
`))
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrInvalidRule))
}

func TestParseRejectsUnknownLogLevel(t *testing.T) {
	_, err := Parse([]byte("controller:\n  ws_url: ws://rig/ws\nlog:\n  level: chatty\n"))
	require.Error(t, err)
}
