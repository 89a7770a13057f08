package history

import (
	"sync"
	"time"

	"sibyl/internal/domain/market"
)

// Default buffer capacities, overridable from settings
const (
	DefaultPriceCap     = 100
	DefaultPortfolioCap = 100
	DefaultSentimentCap = 50
)

// buffer is a fixed-capacity FIFO. Appending beyond capacity evicts the
// oldest entries, never part of an entry.
type buffer[T any] struct {
	items []T
	cap   int
}

func newBuffer[T any](capacity int) *buffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &buffer[T]{items: make([]T, 0, capacity), cap: capacity}
}

func (b *buffer[T]) append(item T) {
	b.items = append(b.items, item)
	if overflow := len(b.items) - b.cap; overflow > 0 {
		b.items = b.items[overflow:]
	}
}

func (b *buffer[T]) setCap(capacity int) {
	if capacity <= 0 {
		capacity = 1
	}
	b.cap = capacity
	if overflow := len(b.items) - b.cap; overflow > 0 {
		b.items = b.items[overflow:]
	}
}

func (b *buffer[T]) snapshot() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Store holds the three rolling telemetry buffers shared across the process:
// price points and sentiment points written by the market provider, portfolio
// points written by the ledger. Chart assembly reads all three.
type Store struct {
	mu        sync.RWMutex
	price     *buffer[market.PricePoint]
	portfolio *buffer[market.PortfolioPoint]
	sentiment *buffer[market.SentimentPoint]
}

// NewStore creates a store with the given per-buffer capacities
func NewStore(priceCap, portfolioCap, sentimentCap int) *Store {
	return &Store{
		price:     newBuffer[market.PricePoint](priceCap),
		portfolio: newBuffer[market.PortfolioPoint](portfolioCap),
		sentiment: newBuffer[market.SentimentPoint](sentimentCap),
	}
}

// NewDefaultStore creates a store with the default capacities
func NewDefaultStore() *Store {
	return NewStore(DefaultPriceCap, DefaultPortfolioCap, DefaultSentimentCap)
}

// Resize updates the buffer capacities, evicting oldest entries as needed.
// Called when settings change.
func (s *Store) Resize(priceCap, portfolioCap, sentimentCap int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price.setCap(priceCap)
	s.portfolio.setCap(portfolioCap)
	s.sentiment.setCap(sentimentCap)
}

func (s *Store) AppendPrice(p market.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price.append(p)
}

func (s *Store) AppendPortfolio(p market.PortfolioPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolio.append(p)
}

func (s *Store) AppendSentiment(p market.SentimentPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentiment.append(p)
}

// PriceSince returns price points with timestamp >= cutoff in insertion order
func (s *Store) PriceSince(cutoff time.Time) []market.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]market.PricePoint, 0)
	for _, p := range s.price.items {
		if !p.Timestamp.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

// PortfolioSince returns portfolio points with timestamp >= cutoff in insertion order
func (s *Store) PortfolioSince(cutoff time.Time) []market.PortfolioPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]market.PortfolioPoint, 0)
	for _, p := range s.portfolio.items {
		if !p.Timestamp.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

// SentimentSince returns sentiment points with timestamp >= cutoff in insertion order
func (s *Store) SentimentSince(cutoff time.Time) []market.SentimentPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]market.SentimentPoint, 0)
	for _, p := range s.sentiment.items {
		if !p.Timestamp.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

// Prices returns a copy of the full price buffer, oldest first
func (s *Store) Prices() []market.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.price.snapshot()
}

// LatestPrice returns the most recent price point, if any
func (s *Store) LatestPrice() (market.PricePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.price.items) == 0 {
		return market.PricePoint{}, false
	}
	return s.price.items[len(s.price.items)-1], true
}

// LatestSentiment returns the most recent sentiment point, if any
func (s *Store) LatestSentiment() (market.SentimentPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.sentiment.items) == 0 {
		return market.SentimentPoint{}, false
	}
	return s.sentiment.items[len(s.sentiment.items)-1], true
}

// Lengths reports the current buffer sizes
func (s *Store) Lengths() (price, portfolio, sentiment int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.price.items), len(s.portfolio.items), len(s.sentiment.items)
}
