package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sibyl/internal/adapters/ai"
	"sibyl/internal/adapters/config"
	"sibyl/internal/adapters/errors/noop"
	"sibyl/internal/adapters/errors/sentry"
	"sibyl/internal/adapters/kafka"
	"sibyl/internal/adapters/market"
	"sibyl/internal/adapters/marketcache"
	"sibyl/internal/adapters/postgres"
	"sibyl/internal/adapters/telegram"
	"sibyl/internal/api"
	"sibyl/internal/history"
	pgrepo "sibyl/internal/repository/postgres"
	"sibyl/internal/sentiment"
	"sibyl/internal/services/chart"
	settingssvc "sibyl/internal/services/settings"
	"sibyl/internal/services/trading"
	"sibyl/internal/workers"
	"sibyl/internal/workers/marketdata"
	"sibyl/pkg/errors"
	"sibyl/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	if err := pgrepo.Migrate(ctx, pgClient.DB()); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	tradeRepo := pgrepo.NewTradeRepository(pgClient.DB())
	settingsRepo := pgrepo.NewSettingsRepository(pgClient.DB())

	// Shared state
	hist := history.NewDefaultStore()
	settingsService := settingssvc.NewService(settingsRepo, hist)

	activeSettings, err := settingsService.Get(ctx)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	hist.Resize(
		activeSettings.PriceHistoryLimit,
		activeSettings.PortfolioSnapshotsLimit,
		activeSettings.SentimentHistoryLimit,
	)

	// Market data
	var cache market.SnapshotCache
	if cfg.Redis.Enabled() {
		cache = marketcache.New(cfg.Redis, cfg.Market.SnapshotCacheTTL)
		log.Info("Market snapshot cache enabled (Redis)")
	}
	provider := market.NewProvider(cfg.Market, sentiment.NewClassifier(), hist, cache)

	// Decision model
	var engine *trading.Engine
	var verifier *trading.Verifier
	chatClient, err := ai.NewClient(cfg.AI)
	switch {
	case err == nil:
		engine = trading.NewEngine(chatClient)
		verifier = trading.NewVerifier(chatClient)
	case errors.Is(err, errors.ErrNoDecisionProvider):
		log.Warn("No decision provider configured, manual trades disabled")
	default:
		log.Fatalf("Failed to init decision client: %v", err)
	}

	// Pipeline collaborators
	var notifier trading.Notifier
	if cfg.Telegram.Enabled() {
		tg, err := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			log.Warnf("Telegram notifier disabled: %v", err)
		} else {
			notifier = tg
		}
	}

	var publisher trading.EventPublisher
	if cfg.Kafka.Enabled() {
		kp := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TradeTopic)
		defer kp.Close()
		publisher = kp
		log.Info("Trade event publishing enabled (Kafka)")
	}

	ledger := trading.NewLedger(activeSettings.InitialPortfolioValue, hist)
	pipeline := trading.NewPipeline(
		provider, engine, verifier, ledger,
		tradeRepo, settingsService, notifier, publisher,
	)

	// Background work
	cycle := pipeline.RunReducedCycle
	if cfg.Trading.AutoTradeFullPipeline {
		cycle = pipeline.RunCycle
	}
	autoTrader := workers.NewAutoTrader(cycle, settingsService, cfg.Trading.CycleBackoff)

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(marketdata.NewCollector(provider, time.Minute, true))
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// HTTP
	assembler := chart.NewAssembler(hist, tradeRepo, provider, ledger)
	handler := api.NewHandler(pipeline, autoTrader, assembler, tradeRepo, settingsService, provider)
	server := api.NewServer(api.ServerConfig{Host: cfg.Server.Host, Port: cfg.Server.Port}, handler)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, server, autoTrader, scheduler, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	server *api.Server,
	autoTrader *workers.AutoTrader,
	scheduler *workers.Scheduler,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}

	autoTrader.Stop()
	scheduler.Stop()
	cancel()

	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
