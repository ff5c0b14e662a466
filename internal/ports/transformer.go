package ports

import "github.com/ghalamif/AegisFeed/internal/domain"

// Transformer may rewrite a snapshot before it is recorded.
type Transformer interface {
	Transform(*domain.Snapshot) (*domain.Snapshot, error)
	Version() uint16
}
