package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sibyl/internal/domain/market"
	domain "sibyl/internal/domain/settings"
	"sibyl/internal/history"
	"sibyl/pkg/errors"
)

func pricePointAt(i int) market.PricePoint {
	return market.PricePoint{
		Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
		Price:     float64(i),
	}
}

// memRepo is an in-memory settings.Repository
type memRepo struct {
	current *domain.Settings
	saves   int
}

func (m *memRepo) Get(ctx context.Context) (*domain.Settings, error) {
	return m.current, nil
}

func (m *memRepo) Save(ctx context.Context, s *domain.Settings) error {
	m.current = s
	m.saves++
	return nil
}

func (m *memRepo) Delete(ctx context.Context) error {
	m.current = nil
	return nil
}

func TestService_GetCreatesDefaultsWhenMissing(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, history.NewDefaultStore())

	s, err := svc.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1000.0, s.InitialPortfolioValue)
	assert.Equal(t, 5, s.AutoTradingIntervalMin)
	assert.Equal(t, 100, s.PriceHistoryLimit)
	assert.Equal(t, 50, s.SentimentHistoryLimit)
	assert.Equal(t, 1, repo.saves)

	// Second read returns the persisted record without re-creating it
	again, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
	assert.Equal(t, 1, repo.saves)
}

func TestService_UpdatePreservesIdentity(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, history.NewDefaultStore())

	original, err := svc.Get(context.Background())
	require.NoError(t, err)

	updated := domain.Default()
	updated.MaxTradesPerDay = 7
	updated.RiskThreshold = 0.9

	saved, err := svc.Update(context.Background(), updated)
	require.NoError(t, err)

	assert.Equal(t, original.ID, saved.ID)
	assert.Equal(t, original.CreatedAt, saved.CreatedAt)
	assert.Equal(t, 7, saved.MaxTradesPerDay)
	assert.False(t, saved.UpdatedAt.Before(original.UpdatedAt))
}

func TestService_UpdateResizesHistory(t *testing.T) {
	hist := history.NewDefaultStore()
	svc := NewService(&memRepo{}, hist)

	updated := domain.Default()
	updated.PriceHistoryLimit = 7
	updated.PortfolioSnapshotsLimit = 8
	updated.SentimentHistoryLimit = 9

	_, err := svc.Update(context.Background(), updated)
	require.NoError(t, err)

	// Capacities applied: appending past the new caps evicts
	for i := 0; i < 20; i++ {
		hist.AppendPrice(pricePointAt(i))
	}
	price, _, _ := hist.Lengths()
	assert.Equal(t, 7, price)
}

func TestService_UpdateValidation(t *testing.T) {
	svc := NewService(&memRepo{}, history.NewDefaultStore())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.Settings)
	}{
		{"non-positive portfolio", func(s *domain.Settings) { s.InitialPortfolioValue = 0 }},
		{"non-positive interval", func(s *domain.Settings) { s.AutoTradingIntervalMin = -1 }},
		{"non-positive history limit", func(s *domain.Settings) { s.PriceHistoryLimit = 0 }},
		{"risk threshold out of range", func(s *domain.Settings) { s.RiskThreshold = 1.5 }},
		{"confidence threshold out of range", func(s *domain.Settings) { s.ConfidenceThreshold = -0.1 }},
		{"negative trade cap", func(s *domain.Settings) { s.MaxTradesPerDay = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := domain.Default()
			tt.mutate(bad)

			_, err := svc.Update(ctx, bad)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput))
		})
	}
}

func TestService_ResetReinstatesDefaults(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, history.NewDefaultStore())

	tweaked := domain.Default()
	tweaked.MaxTradesPerDay = 3
	_, err := svc.Update(context.Background(), tweaked)
	require.NoError(t, err)

	fresh, err := svc.Reset(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 50, fresh.MaxTradesPerDay)
	assert.Equal(t, 1000.0, fresh.InitialPortfolioValue)
}
