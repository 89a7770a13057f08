package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"sibyl/internal/domain/settings"
	"sibyl/pkg/errors"
)

// Compile-time check
var _ settings.Repository = (*SettingsRepository)(nil)

// SettingsRepository implements settings.Repository using sqlx. At most one
// settings row exists at a time.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the active settings row, or nil when none has been saved
func (r *SettingsRepository) Get(ctx context.Context) (*settings.Settings, error) {
	var s settings.Settings

	query := `SELECT * FROM trading_settings ORDER BY created_at DESC LIMIT 1`

	if err := r.db.GetContext(ctx, &s, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &s, nil
}

// Save upserts the settings row by id
func (r *SettingsRepository) Save(ctx context.Context, s *settings.Settings) error {
	query := `
		INSERT INTO trading_settings (
			id, initial_portfolio_value, auto_trading_interval_minutes,
			price_history_limit, portfolio_snapshots_limit, sentiment_history_limit,
			frontend_refresh_interval_seconds, risk_threshold, confidence_threshold,
			max_trades_per_day, stop_loss_percentage, take_profit_percentage,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (id) DO UPDATE SET
			initial_portfolio_value           = EXCLUDED.initial_portfolio_value,
			auto_trading_interval_minutes     = EXCLUDED.auto_trading_interval_minutes,
			price_history_limit               = EXCLUDED.price_history_limit,
			portfolio_snapshots_limit         = EXCLUDED.portfolio_snapshots_limit,
			sentiment_history_limit           = EXCLUDED.sentiment_history_limit,
			frontend_refresh_interval_seconds = EXCLUDED.frontend_refresh_interval_seconds,
			risk_threshold                    = EXCLUDED.risk_threshold,
			confidence_threshold              = EXCLUDED.confidence_threshold,
			max_trades_per_day                = EXCLUDED.max_trades_per_day,
			stop_loss_percentage              = EXCLUDED.stop_loss_percentage,
			take_profit_percentage            = EXCLUDED.take_profit_percentage,
			updated_at                        = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.InitialPortfolioValue, s.AutoTradingIntervalMin,
		s.PriceHistoryLimit, s.PortfolioSnapshotsLimit, s.SentimentHistoryLimit,
		s.FrontendRefreshIntervalS, s.RiskThreshold, s.ConfidenceThreshold,
		s.MaxTradesPerDay, s.StopLossPercentage, s.TakeProfitPercentage,
		s.CreatedAt, s.UpdatedAt,
	)

	return err
}

// Delete removes all settings rows
func (r *SettingsRepository) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trading_settings`)
	return err
}
