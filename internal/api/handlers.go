package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"sibyl/internal/domain/market"
	"sibyl/internal/domain/settings"
	"sibyl/internal/domain/trade"
	"sibyl/internal/services/chart"
	"sibyl/internal/services/trading"
	"sibyl/pkg/errors"
	"sibyl/pkg/logger"
)

const defaultHistoryLimit = 50

// AutoTradeControl is the toggleable scheduler surface the API exposes
type AutoTradeControl interface {
	Enable()
	Disable()
	Enabled() bool
}

// MarketReader captures current market values without recording them
type MarketReader interface {
	Peek(ctx context.Context) *market.Snapshot
}

// SettingsService is the settings surface the API exposes
type SettingsService interface {
	Get(ctx context.Context) (*settings.Settings, error)
	Update(ctx context.Context, updated *settings.Settings) (*settings.Settings, error)
	Reset(ctx context.Context) (*settings.Settings, error)
}

// Handler binds the trading services to HTTP
type Handler struct {
	pipeline  *trading.Pipeline
	autoTrade AutoTradeControl
	assembler *chart.Assembler
	trades    trade.Repository
	settings  SettingsService
	marketRd  MarketReader
	log       *logger.Logger
}

// NewHandler creates the API handler
func NewHandler(
	pipeline *trading.Pipeline,
	autoTrade AutoTradeControl,
	assembler *chart.Assembler,
	trades trade.Repository,
	settingsSvc SettingsService,
	marketRd MarketReader,
) *Handler {
	return &Handler{
		pipeline:  pipeline,
		autoTrade: autoTrade,
		assembler: assembler,
		trades:    trades,
		settings:  settingsSvc,
		marketRd:  marketRd,
		log:       logger.Get().With("component", "api"),
	}
}

// HandleHealth reports service liveness
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Trading agent is running"})
}

// HandleTriggerTrade runs one full decision cycle on demand
func (h *Handler) HandleTriggerTrade(w http.ResponseWriter, r *http.Request) {
	record, err := h.pipeline.RunCycle(r.Context())
	if err != nil {
		h.log.Errorf("Manual trade trigger failed: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HandleLiveTrade returns the most recent trade record
func (h *Handler) HandleLiveTrade(w http.ResponseWriter, r *http.Request) {
	record, err := h.trades.Latest(r.Context())
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]string{"message": "No trades found"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HandleTradeHistory returns recent trades, newest first
func (h *Handler) HandleTradeHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, errors.Wrapf(errors.ErrInvalidInput, "invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	records, err := h.trades.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleTradeByID returns a single trade record
func (h *Handler) HandleTradeByID(w http.ResponseWriter, r *http.Request) {
	record, err := h.trades.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type metricsResponse struct {
	TotalTrades        int        `json:"total_trades"`
	SuccessfulTrades   int        `json:"successful_trades"`
	TotalProfitLoss    float64    `json:"total_profit_loss"`
	AccuracyPercentage float64    `json:"accuracy_percentage"`
	LastTradeTime      *time.Time `json:"last_trade_time"`
	AutoTradingEnabled bool       `json:"auto_trading_enabled"`
}

// HandleMetrics returns aggregate trade performance
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.trades.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, metricsResponse{
		TotalTrades:        stats.TotalTrades,
		SuccessfulTrades:   stats.SuccessfulTrades,
		TotalProfitLoss:    stats.TotalProfitLoss,
		AccuracyPercentage: stats.AccuracyPercentage(),
		LastTradeTime:      stats.LastTradeTime,
		AutoTradingEnabled: h.autoTrade.Enabled(),
	})
}

// HandleMarketData returns a current market snapshot without recording it
func (h *Handler) HandleMarketData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.marketRd.Peek(r.Context()))
}

// HandlePortfolio returns the current portfolio balances
func (h *Handler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Ledger().State())
}

// HandleEnableAutoTrading starts the auto-trade loop
func (h *Handler) HandleEnableAutoTrading(w http.ResponseWriter, r *http.Request) {
	h.autoTrade.Enable()
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Auto-trading enabled",
		"status":  "active",
	})
}

// HandleDisableAutoTrading stops the auto-trade loop
func (h *Handler) HandleDisableAutoTrading(w http.ResponseWriter, r *http.Request) {
	h.autoTrade.Disable()
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Auto-trading disabled",
		"status":  "stopped",
	})
}

// HandleAutoTradingStatus reports whether the loop is running
func (h *Handler) HandleAutoTradingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": h.autoTrade.Enabled()})
}

// HandleChartData returns the timeframe-filtered chart payload
func (h *Handler) HandleChartData(w http.ResponseWriter, r *http.Request) {
	data, err := h.assembler.Assemble(r.Context(), r.URL.Query().Get("timeframe"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleLiveChartUpdate returns the lightweight live payload
func (h *Handler) HandleLiveChartUpdate(w http.ResponseWriter, r *http.Request) {
	update, err := h.assembler.Live(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

// HandleGetSettings returns the active trading settings
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

// HandleUpdateSettings replaces the active trading settings
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updated settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		writeError(w, errors.Wrap(errors.ErrInvalidInput, "invalid settings payload"))
		return
	}

	saved, err := h.settings.Update(r.Context(), &updated)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleResetSettings reinstates default settings
func (h *Handler) HandleResetSettings(w http.ResponseWriter, r *http.Request) {
	fresh, err := h.settings.Reset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fresh)
}
