package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline and scheduler instrumentation, exported on /metrics
var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sibyl",
		Name:      "pipeline_cycles_total",
		Help:      "Decision pipeline cycles by outcome",
	}, []string{"outcome"})

	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sibyl",
		Name:      "trades_total",
		Help:      "Applied trade decisions by action",
	}, []string{"action"})

	SchedulerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sibyl",
		Name:      "scheduler_cycle_errors_total",
		Help:      "Auto-trade cycles that failed and were retried after backoff",
	})

	PortfolioValue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sibyl",
		Name:      "portfolio_total_value",
		Help:      "Current simulated portfolio value",
	})

	AutoTradingEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sibyl",
		Name:      "auto_trading_enabled",
		Help:      "Whether the auto-trade loop is running (1) or stopped (0)",
	})
)

// Handler exposes the registry in Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
