package ports

import "github.com/ghalamif/AegisFeed/internal/domain"

// TelemetrySource produces snapshots outside the controller session,
// e.g. an OPC UA server mirroring the rig sensors.
type TelemetrySource interface {
	Start(out chan<- *domain.Snapshot) error
	Stop() error
}
