package settings

import (
	"context"
	"time"

	"sibyl/internal/domain/settings"
	"sibyl/internal/history"
	"sibyl/pkg/errors"
	"sibyl/pkg/logger"
)

// Service manages the single trading settings record. A missing record is
// materialized from defaults on first read, so callers always get settings.
type Service struct {
	repo settings.Repository
	hist *history.Store
	log  *logger.Logger
}

// NewService creates the settings service
func NewService(repo settings.Repository, hist *history.Store) *Service {
	return &Service{
		repo: repo,
		hist: hist,
		log:  logger.Get().With("component", "settings_service"),
	}
}

// Get returns the active settings, creating and persisting defaults when
// none exist yet
func (s *Service) Get(ctx context.Context) (*settings.Settings, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	if current != nil {
		return current, nil
	}

	current = settings.Default()
	if err := s.repo.Save(ctx, current); err != nil {
		return nil, errors.Wrap(err, "persist default settings")
	}
	s.log.Info("No settings found, defaults created")

	return current, nil
}

// Update applies a full replacement of the mutable settings fields. The
// record identity and creation time are preserved; history buffers are
// resized to the new limits.
func (s *Service) Update(ctx context.Context, updated *settings.Settings) (*settings.Settings, error) {
	if err := validate(updated); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, updated); err != nil {
		return nil, errors.Wrap(err, "persist settings")
	}

	s.applyLimits(updated)
	s.log.Infow("Settings updated",
		"auto_trading_interval_minutes", updated.AutoTradingIntervalMin,
		"max_trades_per_day", updated.MaxTradesPerDay,
	)

	return updated, nil
}

// Reset discards the current settings and reinstates defaults
func (s *Service) Reset(ctx context.Context) (*settings.Settings, error) {
	if err := s.repo.Delete(ctx); err != nil {
		return nil, errors.Wrap(err, "delete settings")
	}

	fresh := settings.Default()
	if err := s.repo.Save(ctx, fresh); err != nil {
		return nil, errors.Wrap(err, "persist default settings")
	}

	s.applyLimits(fresh)
	s.log.Info("Settings reset to defaults")

	return fresh, nil
}

func (s *Service) applyLimits(cfg *settings.Settings) {
	if s.hist == nil {
		return
	}
	s.hist.Resize(cfg.PriceHistoryLimit, cfg.PortfolioSnapshotsLimit, cfg.SentimentHistoryLimit)
}

func validate(s *settings.Settings) error {
	switch {
	case s.InitialPortfolioValue <= 0:
		return errors.Wrap(errors.ErrInvalidInput, "initial_portfolio_value must be positive")
	case s.AutoTradingIntervalMin <= 0:
		return errors.Wrap(errors.ErrInvalidInput, "auto_trading_interval_minutes must be positive")
	case s.PriceHistoryLimit <= 0 || s.PortfolioSnapshotsLimit <= 0 || s.SentimentHistoryLimit <= 0:
		return errors.Wrap(errors.ErrInvalidInput, "history limits must be positive")
	case s.RiskThreshold < 0 || s.RiskThreshold > 1:
		return errors.Wrap(errors.ErrInvalidInput, "risk_threshold must be in [0,1]")
	case s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1:
		return errors.Wrap(errors.ErrInvalidInput, "confidence_threshold must be in [0,1]")
	case s.MaxTradesPerDay < 0:
		return errors.Wrap(errors.ErrInvalidInput, "max_trades_per_day must not be negative")
	}
	return nil
}
