package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"sibyl/pkg/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trade_records (
		id               UUID PRIMARY KEY,
		timestamp        TIMESTAMPTZ NOT NULL,
		price            DOUBLE PRECISION NOT NULL,
		decision         TEXT NOT NULL,
		confidence       DOUBLE PRECISION NOT NULL,
		reasoning        TEXT NOT NULL DEFAULT '',
		evidence         JSONB NOT NULL DEFAULT '[]',
		is_valid         BOOLEAN NOT NULL DEFAULT TRUE,
		verdict          TEXT NOT NULL DEFAULT '',
		profit_loss      DOUBLE PRECISION,
		chain_of_thought JSONB,
		news_sentiment   TEXT NOT NULL DEFAULT 'neutral',
		social_sentiment TEXT NOT NULL DEFAULT 'neutral'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_records_timestamp ON trade_records (timestamp DESC)`,
	`CREATE TABLE IF NOT EXISTS trading_settings (
		id                                UUID PRIMARY KEY,
		initial_portfolio_value           DOUBLE PRECISION NOT NULL,
		auto_trading_interval_minutes     INTEGER NOT NULL,
		price_history_limit               INTEGER NOT NULL,
		portfolio_snapshots_limit         INTEGER NOT NULL,
		sentiment_history_limit           INTEGER NOT NULL,
		frontend_refresh_interval_seconds INTEGER NOT NULL,
		risk_threshold                    DOUBLE PRECISION NOT NULL,
		confidence_threshold              DOUBLE PRECISION NOT NULL,
		max_trades_per_day                INTEGER NOT NULL,
		stop_loss_percentage              DOUBLE PRECISION NOT NULL,
		take_profit_percentage            DOUBLE PRECISION NOT NULL,
		created_at                        TIMESTAMPTZ NOT NULL,
		updated_at                        TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables the repositories depend on. Statements are
// idempotent so the call is safe on every startup.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "apply schema")
		}
	}
	return nil
}
