package ports

import "github.com/ghalamif/AegisFeed/internal/domain"

type Sink interface {
	WriteBatch(snapshots []*domain.Snapshot) error
	Name() string
}
