package trading

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sibyl/internal/domain/trade"
	"sibyl/internal/history"
)

func newTestLedger(cash float64) *Ledger {
	return NewLedger(cash, history.NewDefaultStore())
}

func TestLedger_BuyConvertsFullBalance(t *testing.T) {
	ledger := newTestLedger(1000)

	pl := ledger.Apply(trade.ActionBuy, 50000)

	state := ledger.State()
	assert.Equal(t, 0.0, pl)
	assert.Equal(t, 0.0, state.CashBalance)
	assert.Equal(t, 0.02, state.HeldAssetAmount)
	assert.Equal(t, 50000.0, state.LastTradePrice)
}

func TestLedger_SellRealizesProfitLoss(t *testing.T) {
	ledger := newTestLedger(1000)

	ledger.Apply(trade.ActionBuy, 50000)
	pl := ledger.Apply(trade.ActionSell, 60000)

	state := ledger.State()
	assert.Equal(t, 200.0, pl)
	assert.Equal(t, 1200.0, state.CashBalance)
	assert.Equal(t, 0.0, state.HeldAssetAmount)
	assert.Equal(t, 60000.0, state.LastTradePrice)
}

func TestLedger_SellAtLossIsNegative(t *testing.T) {
	ledger := newTestLedger(1000)

	ledger.Apply(trade.ActionBuy, 50000)
	pl := ledger.Apply(trade.ActionSell, 40000)

	state := ledger.State()
	assert.Equal(t, -200.0, pl)
	assert.Equal(t, 800.0, state.CashBalance)
}

func TestLedger_BuyWithNoCashIsNoop(t *testing.T) {
	ledger := newTestLedger(1000)

	ledger.Apply(trade.ActionBuy, 50000)
	before := ledger.State()

	pl := ledger.Apply(trade.ActionBuy, 55000)

	assert.Equal(t, 0.0, pl)
	assert.Equal(t, before.HeldAssetAmount, ledger.State().HeldAssetAmount)
	assert.Equal(t, before.LastTradePrice, ledger.State().LastTradePrice)
}

func TestLedger_SellWithNoPositionIsNoop(t *testing.T) {
	ledger := newTestLedger(1000)

	pl := ledger.Apply(trade.ActionSell, 50000)

	state := ledger.State()
	assert.Equal(t, 0.0, pl)
	assert.Equal(t, 1000.0, state.CashBalance)
	assert.Equal(t, 0.0, state.HeldAssetAmount)
}

func TestLedger_HoldChangesNothing(t *testing.T) {
	ledger := newTestLedger(1000)

	pl := ledger.Apply(trade.ActionHold, 50000)

	state := ledger.State()
	assert.Equal(t, 0.0, pl)
	assert.Equal(t, 1000.0, state.CashBalance)
	assert.Equal(t, 0.0, state.LastTradePrice)
}

func TestLedger_AppendsPortfolioSnapshotPerApply(t *testing.T) {
	hist := history.NewDefaultStore()
	ledger := NewLedger(1000, hist)

	ledger.Apply(trade.ActionBuy, 50000)
	ledger.Apply(trade.ActionHold, 51000)
	ledger.Apply(trade.ActionSell, 52000)

	_, portfolio, _ := hist.Lengths()
	assert.Equal(t, 3, portfolio)
}

func TestLedger_BalancesNeverNegative(t *testing.T) {
	ledger := newTestLedger(1000)

	actions := []trade.Action{
		trade.ActionSell, trade.ActionBuy, trade.ActionBuy,
		trade.ActionSell, trade.ActionSell, trade.ActionBuy,
	}
	prices := []float64{50000, 48000, 52000, 46000, 51000, 49000}

	for i, action := range actions {
		ledger.Apply(action, prices[i])
		state := ledger.State()
		require.GreaterOrEqual(t, state.CashBalance, 0.0)
		require.GreaterOrEqual(t, state.HeldAssetAmount, 0.0)
	}
}

func TestLedger_ConcurrentAppliesStayConsistent(t *testing.T) {
	ledger := newTestLedger(1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				ledger.Apply(trade.ActionBuy, 50000)
			} else {
				ledger.Apply(trade.ActionSell, 50000)
			}
		}(i)
	}
	wg.Wait()

	// Full allocation at a single price never creates or destroys value
	state := ledger.State()
	total := state.CashBalance + state.HeldAssetAmount*50000
	assert.InDelta(t, 1000.0, total, 1e-9)
}

func TestLedger_Reset(t *testing.T) {
	ledger := newTestLedger(1000)
	ledger.Apply(trade.ActionBuy, 50000)

	ledger.Reset(2500)

	state := ledger.State()
	assert.Equal(t, 2500.0, state.CashBalance)
	assert.Equal(t, 0.0, state.HeldAssetAmount)
	assert.Equal(t, 0.0, state.LastTradePrice)
}

func TestLedger_CurrentSnapshotValuesPosition(t *testing.T) {
	ledger := newTestLedger(1000)
	ledger.Apply(trade.ActionBuy, 50000)

	snap := ledger.CurrentSnapshot(60000)

	assert.Equal(t, 1200.0, snap.TotalValue)
	assert.Equal(t, 0.0, snap.CashBalance)
	assert.Equal(t, 0.02, snap.HeldAssetAmount)
	assert.Equal(t, 1200.0, snap.HeldAssetValue)
}
