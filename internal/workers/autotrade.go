package workers

import (
	"context"
	"sync"
	"time"

	"sibyl/internal/domain/settings"
	"sibyl/internal/domain/trade"
	"sibyl/internal/metrics"
	"sibyl/pkg/logger"
)

// CycleRunner runs one trading cycle. The auto-trader picks the full or the
// reduced variant at construction time.
type CycleRunner func(ctx context.Context) (*trade.Record, error)

// IntervalSource yields the current auto-trading interval from settings
type IntervalSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// AutoTrader is the cancellable periodic trading loop. Enable and Disable
// are idempotent; disabling stops the next scheduled cycle but lets an
// in-flight cycle run to completion. A failed cycle is logged and retried
// after a fixed backoff; the loop itself never terminates on error.
type AutoTrader struct {
	runCycle CycleRunner
	interval IntervalSource
	backoff  time.Duration
	fallback time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewAutoTrader creates a stopped auto-trader
func NewAutoTrader(runCycle CycleRunner, interval IntervalSource, backoff time.Duration) *AutoTrader {
	if backoff <= 0 {
		backoff = time.Minute
	}
	return &AutoTrader{
		runCycle: runCycle,
		interval: interval,
		backoff:  backoff,
		fallback: 5 * time.Minute,
		log:      logger.Get().With("component", "auto_trader"),
	}
}

// Enable starts the trading loop. Enabling while already running is a no-op.
func (a *AutoTrader) Enable() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		a.log.Debug("Auto-trading already enabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.running = true
	metrics.AutoTradingEnabled.Set(1)

	a.wg.Add(1)
	go a.loop(ctx)

	a.log.Info("Auto-trading enabled")
}

// Disable signals the loop to stop before its next cycle. Disabling while
// already stopped is a no-op.
func (a *AutoTrader) Disable() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}

	a.cancel()
	a.running = false
	metrics.AutoTradingEnabled.Set(0)

	a.log.Info("Auto-trading disabled")
}

// Enabled reports whether the loop is running
func (a *AutoTrader) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Stop disables the loop and waits for an in-flight cycle to finish
func (a *AutoTrader) Stop() {
	a.Disable()
	a.wg.Wait()
}

func (a *AutoTrader) loop(ctx context.Context) {
	defer a.wg.Done()

	// A failed cycle is retried after the short backoff instead of the
	// configured interval; the interval pacing resumes on the next success.
	wait := a.currentInterval(ctx)
	for {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := a.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.SchedulerErrors.Inc()
			a.log.Errorw("Auto-trade cycle failed, backing off", "error", err, "backoff", a.backoff)
			wait = a.backoff
			continue
		}

		wait = a.currentInterval(ctx)
	}
}

// currentInterval reads the configured interval from settings, falling back
// to a default when settings are unavailable
func (a *AutoTrader) currentInterval(ctx context.Context) time.Duration {
	if a.interval == nil {
		return a.fallback
	}
	s, err := a.interval.Get(ctx)
	if err != nil || s == nil || s.AutoTradingIntervalMin <= 0 {
		return a.fallback
	}
	return s.AutoTradingInterval()
}
