package trading

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sibyl/internal/domain/market"
	"sibyl/internal/domain/trade"
	"sibyl/internal/history"
	"sibyl/pkg/logger"
)

// PortfolioState is the externally visible view of the simulated portfolio
type PortfolioState struct {
	CashBalance     float64 `json:"cash_balance"`
	HeldAssetAmount float64 `json:"held_asset_amount"`
	LastTradePrice  float64 `json:"last_trade_price"`
}

// Ledger owns the simulated portfolio. It applies decisions under a full
// allocation model: BUY converts the whole cash balance, SELL liquidates the
// whole position, anything else is a no-op. Apply is the only mutation path
// and is serialized by a mutex so concurrent cycles cannot interleave the
// read-modify-write of the balances.
type Ledger struct {
	mu   sync.Mutex
	cash decimal.Decimal
	held decimal.Decimal
	last decimal.Decimal

	hist *history.Store
	log  *logger.Logger
}

// NewLedger creates a ledger holding the initial cash balance
func NewLedger(initialCash float64, hist *history.Store) *Ledger {
	return &Ledger{
		cash: decimal.NewFromFloat(initialCash),
		hist: hist,
		log:  logger.Get().With("component", "paper_ledger"),
	}
}

// Apply executes one decision at the given price and returns the realized
// profit/loss. BUY with no cash and SELL with no position leave the state
// unchanged. A portfolio snapshot is appended inside the same critical
// section so history always reflects a consistent state.
func (l *Ledger) Apply(action trade.Action, price float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := decimal.NewFromFloat(price)
	profitLoss := decimal.Zero

	switch action {
	case trade.ActionBuy:
		if l.cash.IsPositive() && p.IsPositive() {
			units := l.cash.Div(p)
			l.held = l.held.Add(units)
			l.cash = decimal.Zero
			l.last = p
			l.log.Infow("Bought", "units", units, "price", price)
		}
	case trade.ActionSell:
		if l.held.IsPositive() {
			proceeds := l.held.Mul(p)
			profitLoss = proceeds.Sub(l.held.Mul(l.last))
			l.cash = proceeds
			l.held = decimal.Zero
			l.log.Infow("Sold", "proceeds", proceeds, "profit_loss", profitLoss)
		}
	case trade.ActionHold:
		// no state change
	}

	l.appendSnapshotLocked(p)
	return profitLoss.InexactFloat64()
}

// State returns the current portfolio balances
func (l *Ledger) State() PortfolioState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return PortfolioState{
		CashBalance:     l.cash.InexactFloat64(),
		HeldAssetAmount: l.held.InexactFloat64(),
		LastTradePrice:  l.last.InexactFloat64(),
	}
}

// Reset restores the ledger to a flat position with the given cash balance
func (l *Ledger) Reset(initialCash float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cash = decimal.NewFromFloat(initialCash)
	l.held = decimal.Zero
	l.last = decimal.Zero
	l.log.Infow("Ledger reset", "cash", initialCash)
}

// CurrentSnapshot values the portfolio at the given price without mutating it
func (l *Ledger) CurrentSnapshot(price float64) market.PortfolioPoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked(decimal.NewFromFloat(price))
}

func (l *Ledger) appendSnapshotLocked(price decimal.Decimal) {
	l.hist.AppendPortfolio(l.snapshotLocked(price))
}

func (l *Ledger) snapshotLocked(price decimal.Decimal) market.PortfolioPoint {
	heldValue := l.held.Mul(price)
	return market.PortfolioPoint{
		Timestamp:       time.Now().UTC(),
		TotalValue:      l.cash.Add(heldValue).InexactFloat64(),
		CashBalance:     l.cash.InexactFloat64(),
		HeldAssetAmount: l.held.InexactFloat64(),
		HeldAssetValue:  heldValue.InexactFloat64(),
	}
}
