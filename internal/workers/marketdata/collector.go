package marketdata

import (
	"context"
	"time"

	"sibyl/internal/adapters/market"
	"sibyl/internal/workers"
)

// Collector keeps the rolling price and sentiment buffers warm by capturing
// a snapshot on a fixed interval, independent of trading activity. The
// provider handles upstream failures internally, so a collector iteration
// never fails.
type Collector struct {
	*workers.BaseWorker
	provider *market.Provider
}

// NewCollector creates a market data collector worker
func NewCollector(provider *market.Provider, interval time.Duration, enabled bool) *Collector {
	return &Collector{
		BaseWorker: workers.NewBaseWorker("market_collector", interval, enabled),
		provider:   provider,
	}
}

// Run captures one snapshot into the rolling history
func (c *Collector) Run(ctx context.Context) error {
	snapshot := c.provider.Capture(ctx)
	c.Log().Debugw("Market snapshot collected",
		"price", snapshot.Price,
		"momentum", snapshot.MomentumIndex,
		"news_sentiment", snapshot.NewsSentiment,
	)
	c.RecordRun()
	return nil
}
