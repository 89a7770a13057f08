package settings

import "context"

// Repository persists the single settings record
type Repository interface {
	// Get returns the active settings, or nil when none have been saved yet
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
	Delete(ctx context.Context) error
}
