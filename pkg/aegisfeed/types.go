package aegisfeed

import (
	"github.com/ghalamif/AegisFeed/internal/app/control"
	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

// Snapshot is one normalized telemetry reading of the whole rig.
type Snapshot = domain.Snapshot

// Reading is a single channel value that may be unavailable.
type Reading = domain.Reading

// ValveID indexes one of the nine rig valves.
type ValveID = domain.ValveID

// ValveVector is the open/closed state of every valve.
type ValveVector = domain.ValveVector

// SystemMode is the rig's operating mode.
type SystemMode = domain.SystemMode

// AutomationRule opens or closes a valve when a pressure crosses a threshold.
type AutomationRule = domain.AutomationRule

// AuditEntry is one operator-facing log line.
type AuditEntry = domain.AuditEntry

// State is the supervisor's authoritative valve and mode view.
type State = control.State

// Decision is the arbitration gate's verdict on a command.
type Decision = control.Decision

// TelemetrySource streams snapshots from an alternate source (OPC UA, simulators).
type TelemetrySource = ports.TelemetrySource

// SnapshotQueue is the bounded queue between the recorder and the archive sink.
type SnapshotQueue = ports.SnapshotQueue

// QueuedSnapshot is an item buffered inside the recorder queue.
type QueuedSnapshot = ports.QueuedSnapshot

// Transformer lets callers rewrite snapshots (calibration, unit conversion) before archiving.
type Transformer = ports.Transformer

// Sink consumes batches of snapshots and persists them downstream.
type Sink = ports.Sink

// Observability emits metrics and logs.
type Observability = ports.Observability

// Field is a structured log field.
type Field = ports.Field

// WAL abstracts the recorder's write-ahead log.
type WAL = ports.WAL

// WALStats exposes WAL metadata.
type WALStats = ports.WALStats

// WALEntryID identifies a WAL entry.
type WALEntryID = ports.WALEntryID

const (
	Admitted          = control.Admitted
	Unchanged         = control.Unchanged
	RejectedEmergency = control.RejectedEmergency
	RejectedDebounce  = control.RejectedDebounce
)

var (
	ErrUnknownScenario = control.ErrUnknownScenario
	ErrValveOutOfRange = control.ErrValveOutOfRange
	ErrInvalidRule     = domain.ErrInvalidRule
)

// ScenarioDefinition is a named, timed sequence of valve vectors.
type ScenarioDefinition = domain.ScenarioDefinition
