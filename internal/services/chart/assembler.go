package chart

import (
	"context"
	"sort"
	"time"

	"sibyl/internal/domain/market"
	"sibyl/internal/domain/trade"
	"sibyl/internal/history"
	"sibyl/pkg/logger"
)

// Timeframe windows. Unrecognized timeframes fall back to the shortest.
var windows = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

const defaultTimeframe = "1h"

// Window resolves a timeframe name to its lookback duration
func Window(timeframe string) (string, time.Duration) {
	if w, ok := windows[timeframe]; ok {
		return timeframe, w
	}
	return defaultTimeframe, windows[defaultTimeframe]
}

// TradeMarker is one executed decision plotted on the price chart
type TradeMarker struct {
	Timestamp  time.Time    `json:"timestamp"`
	Price      float64      `json:"price"`
	Action     trade.Action `json:"action"`
	Confidence float64      `json:"confidence"`
	ProfitLoss *float64     `json:"profit_loss"`
}

// Data is the timeframe-filtered chart payload
type Data struct {
	Timeframe        string                  `json:"timeframe"`
	PriceHistory     []market.PricePoint     `json:"price_history"`
	TradeMarkers     []TradeMarker           `json:"trade_markers"`
	PortfolioHistory []market.PortfolioPoint `json:"portfolio_history"`
	SentimentTimeline []market.SentimentPoint `json:"sentiment_timeline"`
}

// LiveUpdate is the lightweight payload pushed to live consumers
type LiveUpdate struct {
	LatestPrice     *market.PricePoint     `json:"latest_price"`
	LatestTrade     *trade.Record          `json:"latest_trade,omitempty"`
	Portfolio       market.PortfolioPoint  `json:"portfolio"`
	LatestSentiment *market.SentimentPoint `json:"latest_sentiment"`
	Timestamp       time.Time              `json:"timestamp"`
}

// SnapshotPeeker captures current market values without recording them
type SnapshotPeeker interface {
	Peek(ctx context.Context) *market.Snapshot
}

// PortfolioReader values the current portfolio at a price
type PortfolioReader interface {
	CurrentSnapshot(price float64) market.PortfolioPoint
}

// Assembler produces timeframe-filtered chart views from the rolling history
// and the persisted trade log. It never mutates pipeline state.
type Assembler struct {
	hist      *history.Store
	trades    trade.Repository
	peeker    SnapshotPeeker
	portfolio PortfolioReader
	log       *logger.Logger
}

// NewAssembler creates a chart assembler
func NewAssembler(hist *history.Store, trades trade.Repository, peeker SnapshotPeeker, portfolio PortfolioReader) *Assembler {
	return &Assembler{
		hist:      hist,
		trades:    trades,
		peeker:    peeker,
		portfolio: portfolio,
		log:       logger.Get().With("component", "chart_assembler"),
	}
}

// Assemble builds the chart payload for one timeframe. Empty price or
// portfolio series are backfilled with exactly one synthesized current-value
// point so charts are never empty on first use; synthesized points are not
// appended to the rolling history.
func (a *Assembler) Assemble(ctx context.Context, timeframe string) (*Data, error) {
	name, window := Window(timeframe)
	cutoff := time.Now().UTC().Add(-window)

	data := &Data{
		Timeframe:         name,
		PriceHistory:      a.hist.PriceSince(cutoff),
		PortfolioHistory:  a.hist.PortfolioSince(cutoff),
		SentimentTimeline: a.hist.SentimentSince(cutoff),
	}

	markers, err := a.tradeMarkers(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	data.TradeMarkers = markers

	var current *market.Snapshot
	if len(data.PriceHistory) == 0 {
		current = a.peeker.Peek(ctx)
		data.PriceHistory = []market.PricePoint{{
			Timestamp:     current.CapturedAt,
			Price:         current.Price,
			Volume:        current.Volume,
			MomentumIndex: current.MomentumIndex,
		}}
	}

	if len(data.PortfolioHistory) == 0 {
		if current == nil {
			current = a.peeker.Peek(ctx)
		}
		data.PortfolioHistory = []market.PortfolioPoint{a.portfolio.CurrentSnapshot(current.Price)}
	}

	return data, nil
}

// tradeMarkers filters the persisted trade log by the same cutoff. The store
// returns newest first; markers are re-sorted ascending for plotting.
func (a *Assembler) tradeMarkers(ctx context.Context, cutoff time.Time) ([]TradeMarker, error) {
	records, err := a.trades.ListSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	markers := make([]TradeMarker, 0, len(records))
	for _, r := range records {
		markers = append(markers, TradeMarker{
			Timestamp:  r.Timestamp,
			Price:      r.Price,
			Action:     r.Decision,
			Confidence: r.Confidence,
			ProfitLoss: r.ProfitLoss,
		})
	}

	sort.Slice(markers, func(i, j int) bool {
		return markers[i].Timestamp.Before(markers[j].Timestamp)
	})
	return markers, nil
}

// Live builds the current live-update payload
func (a *Assembler) Live(ctx context.Context) (*LiveUpdate, error) {
	update := &LiveUpdate{Timestamp: time.Now().UTC()}

	price, ok := a.hist.LatestPrice()
	if !ok {
		current := a.peeker.Peek(ctx)
		price = market.PricePoint{
			Timestamp:     current.CapturedAt,
			Price:         current.Price,
			Volume:        current.Volume,
			MomentumIndex: current.MomentumIndex,
		}
	}
	update.LatestPrice = &price
	update.Portfolio = a.portfolio.CurrentSnapshot(price.Price)

	if sentimentPoint, ok := a.hist.LatestSentiment(); ok {
		update.LatestSentiment = &sentimentPoint
	}

	latest, err := a.trades.Latest(ctx)
	if err == nil && latest != nil {
		update.LatestTrade = latest
	}

	return update, nil
}
