package trade

import (
	"context"
	"time"
)

// Repository is the persisted, append-only trade record log.
// Records are queryable by id and by timestamp descending.
type Repository interface {
	Insert(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	Latest(ctx context.Context) (*Record, error)
	List(ctx context.Context, limit int) ([]*Record, error)
	ListSince(ctx context.Context, cutoff time.Time) ([]*Record, error)
	CountSince(ctx context.Context, cutoff time.Time) (int, error)
	Stats(ctx context.Context) (*Stats, error)
}
