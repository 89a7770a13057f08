package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sibyl/internal/domain/market"
)

func pricePoint(ts time.Time, price float64) market.PricePoint {
	return market.PricePoint{Timestamp: ts, Price: price, Volume: 1000, MomentumIndex: 50}
}

func TestStore_PriceBufferEvictsOldest(t *testing.T) {
	store := NewStore(3, 3, 3)
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		store.AppendPrice(pricePoint(base.Add(time.Duration(i)*time.Minute), float64(100+i)))
	}

	prices := store.Prices()
	require.Len(t, prices, 3)
	assert.Equal(t, 102.0, prices[0].Price)
	assert.Equal(t, 104.0, prices[2].Price)
}

func TestStore_BuffersAreIndependent(t *testing.T) {
	store := NewStore(2, 3, 1)
	now := time.Now().UTC()

	for i := 0; i < 4; i++ {
		store.AppendPrice(pricePoint(now, 100))
		store.AppendPortfolio(market.PortfolioPoint{Timestamp: now, TotalValue: 1000})
		store.AppendSentiment(market.SentimentPoint{Timestamp: now})
	}

	price, portfolio, sentimentLen := store.Lengths()
	assert.Equal(t, 2, price)
	assert.Equal(t, 3, portfolio)
	assert.Equal(t, 1, sentimentLen)
}

func TestStore_SinceFiltersInclusive(t *testing.T) {
	store := NewDefaultStore()
	base := time.Now().UTC()
	cutoff := base.Add(10 * time.Minute)

	store.AppendPrice(pricePoint(base, 100))
	store.AppendPrice(pricePoint(cutoff, 101))
	store.AppendPrice(pricePoint(cutoff.Add(time.Minute), 102))

	since := store.PriceSince(cutoff)
	require.Len(t, since, 2)
	assert.Equal(t, 101.0, since[0].Price)
	assert.Equal(t, 102.0, since[1].Price)
}

func TestStore_SincePreservesInsertionOrder(t *testing.T) {
	store := NewDefaultStore()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 10; i++ {
		store.AppendPrice(pricePoint(base.Add(time.Duration(i)*time.Minute), float64(i)))
	}

	since := store.PriceSince(base)
	require.Len(t, since, 10)
	for i := 1; i < len(since); i++ {
		assert.True(t, !since[i].Timestamp.Before(since[i-1].Timestamp))
	}
}

func TestStore_ResizeEvictsOldest(t *testing.T) {
	store := NewStore(5, 5, 5)
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		store.AppendPrice(pricePoint(base.Add(time.Duration(i)*time.Second), float64(i)))
	}

	store.Resize(2, 5, 5)

	prices := store.Prices()
	require.Len(t, prices, 2)
	assert.Equal(t, 3.0, prices[0].Price)
	assert.Equal(t, 4.0, prices[1].Price)
}

func TestStore_LatestPrice(t *testing.T) {
	store := NewDefaultStore()

	_, ok := store.LatestPrice()
	assert.False(t, ok)

	store.AppendPrice(pricePoint(time.Now().UTC(), 100))
	store.AppendPrice(pricePoint(time.Now().UTC(), 200))

	latest, ok := store.LatestPrice()
	require.True(t, ok)
	assert.Equal(t, 200.0, latest.Price)
}
