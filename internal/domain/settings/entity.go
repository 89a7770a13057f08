package settings

import (
	"time"

	"github.com/google/uuid"
)

// Settings is the single active trading configuration record. All components
// read it at cycle start; it changes only through an explicit update or reset.
type Settings struct {
	ID                       string    `json:"id" db:"id"`
	InitialPortfolioValue    float64   `json:"initial_portfolio_value" db:"initial_portfolio_value"`
	AutoTradingIntervalMin   int       `json:"auto_trading_interval_minutes" db:"auto_trading_interval_minutes"`
	PriceHistoryLimit        int       `json:"price_history_limit" db:"price_history_limit"`
	PortfolioSnapshotsLimit  int       `json:"portfolio_snapshots_limit" db:"portfolio_snapshots_limit"`
	SentimentHistoryLimit    int       `json:"sentiment_history_limit" db:"sentiment_history_limit"`
	FrontendRefreshIntervalS int       `json:"frontend_refresh_interval_seconds" db:"frontend_refresh_interval_seconds"`
	RiskThreshold            float64   `json:"risk_threshold" db:"risk_threshold"`
	ConfidenceThreshold      float64   `json:"confidence_threshold" db:"confidence_threshold"`
	MaxTradesPerDay          int       `json:"max_trades_per_day" db:"max_trades_per_day"`
	StopLossPercentage       float64   `json:"stop_loss_percentage" db:"stop_loss_percentage"`
	TakeProfitPercentage     float64   `json:"take_profit_percentage" db:"take_profit_percentage"`
	CreatedAt                time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time `json:"updated_at" db:"updated_at"`
}

// AutoTradingInterval returns the scheduler interval as a duration
func (s *Settings) AutoTradingInterval() time.Duration {
	return time.Duration(s.AutoTradingIntervalMin) * time.Minute
}

// Default returns a fresh settings record with baseline values
func Default() *Settings {
	now := time.Now().UTC()
	return &Settings{
		ID:                       uuid.NewString(),
		InitialPortfolioValue:    1000.0,
		AutoTradingIntervalMin:   5,
		PriceHistoryLimit:        100,
		PortfolioSnapshotsLimit:  100,
		SentimentHistoryLimit:    50,
		FrontendRefreshIntervalS: 10,
		RiskThreshold:            0.7,
		ConfidenceThreshold:      0.6,
		MaxTradesPerDay:          50,
		StopLossPercentage:       5.0,
		TakeProfitPercentage:     10.0,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
}
