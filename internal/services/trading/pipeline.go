package trading

import (
	"context"
	"time"

	"sibyl/internal/domain/market"
	"sibyl/internal/domain/settings"
	"sibyl/internal/domain/trade"
	"sibyl/internal/metrics"
	"sibyl/pkg/errors"
	"sibyl/pkg/logger"
)

// SnapshotProvider captures market data for one cycle
type SnapshotProvider interface {
	Capture(ctx context.Context) *market.Snapshot
}

// Notifier delivers best-effort trade notifications (Telegram). Failures
// are logged, never surfaced.
type Notifier interface {
	NotifyTrade(ctx context.Context, record *trade.Record)
}

// EventPublisher emits trade events to an external bus (Kafka). Best-effort.
type EventPublisher interface {
	PublishTrade(ctx context.Context, record *trade.Record) error
}

// SettingsSource yields the active trading settings at cycle start
type SettingsSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// Pipeline orchestrates one decision cycle: capture a snapshot, ask the
// decision model, verify the answer, apply it to the paper ledger, persist
// the record. Exactly one trade record is produced per successful cycle; a
// malformed decision aborts the cycle with no record and no portfolio change.
type Pipeline struct {
	provider  SnapshotProvider
	engine    *Engine
	verifier  *Verifier
	ledger    *Ledger
	trades    trade.Repository
	settings  SettingsSource
	notifier  Notifier
	publisher EventPublisher
	log       *logger.Logger
}

// NewPipeline wires the trading pipeline. engine and verifier may be nil
// when no decision provider is configured; RunCycle then fails with
// ErrNoDecisionProvider while RunReducedCycle still works.
func NewPipeline(
	provider SnapshotProvider,
	engine *Engine,
	verifier *Verifier,
	ledger *Ledger,
	trades trade.Repository,
	settingsSource SettingsSource,
	notifier Notifier,
	publisher EventPublisher,
) *Pipeline {
	return &Pipeline{
		provider:  provider,
		engine:    engine,
		verifier:  verifier,
		ledger:    ledger,
		trades:    trades,
		settings:  settingsSource,
		notifier:  notifier,
		publisher: publisher,
		log:       logger.Get().With("component", "trading_pipeline"),
	}
}

// Ledger exposes the pipeline's paper ledger for read-only consumers
func (p *Pipeline) Ledger() *Ledger {
	return p.ledger
}

// RunCycle executes the full decision pipeline once
func (p *Pipeline) RunCycle(ctx context.Context) (*trade.Record, error) {
	if p.engine == nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, errors.ErrNoDecisionProvider
	}

	if err := p.checkTradeCap(ctx); err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	snapshot := p.provider.Capture(ctx)
	brief := Brief(snapshot, p.ledger.State())

	decision, err := p.engine.Decide(ctx, brief)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	verification := trade.Unverifiable()
	if p.verifier != nil {
		verification = p.verifier.Verify(ctx, decision, brief)
	}

	return p.commit(ctx, snapshot, decision, verification)
}

// RunReducedCycle records a HOLD without consulting the decision model,
// bounding model spend for scheduled runs
func (p *Pipeline) RunReducedCycle(ctx context.Context) (*trade.Record, error) {
	if err := p.checkTradeCap(ctx); err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	snapshot := p.provider.Capture(ctx)

	decision := trade.Decision{
		Action:     trade.ActionHold,
		Confidence: 0.5,
		Rationale:  "Scheduled safety hold; decision model not consulted",
		ChainOfThought: trade.ChainOfThought{
			MarketAnalysis: "Reduced cycle: no model analysis performed",
			RiskAssessment: "Holding carries no execution risk",
			ReasoningSteps: []string{"reduced cycle configured", "hold position"},
		},
	}

	return p.commit(ctx, snapshot, decision, trade.Unverifiable())
}

func (p *Pipeline) commit(ctx context.Context, snapshot *market.Snapshot, decision trade.Decision, verification trade.Verification) (*trade.Record, error) {
	profitLoss := p.ledger.Apply(decision.Action, snapshot.Price)

	record := trade.NewRecord(snapshot, decision, verification, profitLoss)
	if err := p.trades.Insert(ctx, record); err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "persist trade record")
	}

	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	metrics.TradesTotal.WithLabelValues(string(decision.Action)).Inc()
	metrics.PortfolioValue.Set(p.ledger.CurrentSnapshot(snapshot.Price).TotalValue)

	if p.notifier != nil {
		p.notifier.NotifyTrade(ctx, record)
	}
	if p.publisher != nil {
		if err := p.publisher.PublishTrade(ctx, record); err != nil {
			p.log.Warnf("Trade event publish failed: %v", err)
		}
	}

	p.log.Infow("Cycle complete",
		"action", decision.Action,
		"confidence", decision.Confidence,
		"price", snapshot.Price,
		"profit_loss", profitLoss,
		"verified_valid", verification.IsValid,
	)

	return record, nil
}

// checkTradeCap enforces the daily trade cap from settings
func (p *Pipeline) checkTradeCap(ctx context.Context) error {
	if p.settings == nil {
		return nil
	}
	s, err := p.settings.Get(ctx)
	if err != nil {
		p.log.Warnf("Settings unavailable, skipping trade cap check: %v", err)
		return nil
	}
	if s.MaxTradesPerDay <= 0 {
		return nil
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	count, err := p.trades.CountSince(ctx, dayStart)
	if err != nil {
		p.log.Warnf("Trade count unavailable, skipping trade cap check: %v", err)
		return nil
	}
	if count >= s.MaxTradesPerDay {
		return errors.Wrapf(errors.ErrTradeCapReached, "%d trades today, cap %d", count, s.MaxTradesPerDay)
	}
	return nil
}
