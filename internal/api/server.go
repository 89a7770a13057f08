package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"sibyl/internal/metrics"
	"sibyl/pkg/errors"
	"sibyl/pkg/logger"
)

// ServerConfig contains configuration for HTTP server
type ServerConfig struct {
	Host string
	Port int
}

// Server wraps HTTP server with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures HTTP server with all routes
func NewServer(cfg ServerConfig, h *Handler) *Server {
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     corsMiddleware(NewMux(h)),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: the websocket stream holds its connection open
		IdleTimeout: 60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		log:        logger.Get().With("component", "http_server"),
	}
}

// NewMux registers all API routes
func NewMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/", h.HandleHealth)
	mux.HandleFunc("POST /api/trade/trigger", h.HandleTriggerTrade)
	mux.HandleFunc("GET /api/trade/live", h.HandleLiveTrade)
	mux.HandleFunc("GET /api/trade/history", h.HandleTradeHistory)
	mux.HandleFunc("GET /api/trade/{id}", h.HandleTradeByID)
	mux.HandleFunc("GET /api/metrics", h.HandleMetrics)
	mux.HandleFunc("GET /api/market/data", h.HandleMarketData)
	mux.HandleFunc("GET /api/portfolio", h.HandlePortfolio)
	mux.HandleFunc("POST /api/auto-trading/enable", h.HandleEnableAutoTrading)
	mux.HandleFunc("POST /api/auto-trading/disable", h.HandleDisableAutoTrading)
	mux.HandleFunc("GET /api/auto-trading/status", h.HandleAutoTradingStatus)
	mux.HandleFunc("GET /api/trades/chart-data", h.HandleChartData)
	mux.HandleFunc("GET /api/chart/live-update", h.HandleLiveChartUpdate)
	mux.HandleFunc("GET /api/settings", h.HandleGetSettings)
	mux.HandleFunc("PUT /api/settings", h.HandleUpdateSettings)
	mux.HandleFunc("POST /api/settings/reset", h.HandleResetSettings)
	mux.HandleFunc("GET /api/ws/live", h.HandleLiveStream)

	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

// corsMiddleware allows cross-origin requests from any frontend
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start begins listening for HTTP requests
// Blocks until server is stopped or encounters an error
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
// Waits for active connections to complete within timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("HTTP server stopped")
	return nil
}
