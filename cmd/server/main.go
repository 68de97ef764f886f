package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/pakipark/internal"
	"github.com/DukeRupert/pakipark/internal/domain"
	"github.com/DukeRupert/pakipark/internal/handler"
	"github.com/DukeRupert/pakipark/internal/metrics"
	"github.com/DukeRupert/pakipark/internal/middleware"
	"github.com/DukeRupert/pakipark/internal/navigation"
	"github.com/DukeRupert/pakipark/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logOut, logCloser := internal.LogOutput(os.Stdout, cfg.LogFile, cfg.LogMaxSizeMB)
	defer logCloser.Close()
	logger := internal.NewLogger(logOut, cfg.Env, cfg.LogLevel)

	// Initialize services
	var authService service.AuthService = service.NewSimulatedAuthService(
		cfg.AuthSimulatedDelay,
		domain.LoginOutcome(cfg.AuthSimulatedOutcome),
	)
	authService = service.WithTimeout(authService, cfg.AuthTimeout)
	authService = service.Instrumented(authService, logger)
	logger.Info("Auth service ready",
		"simulated_delay", cfg.AuthSimulatedDelay,
		"simulated_outcome", cfg.AuthSimulatedOutcome,
		"timeout", cfg.AuthTimeout,
	)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	if !metricsAuthMw.Enabled() {
		logger.Warn("Metrics endpoint is unprotected; set METRICS_USERNAME and METRICS_PASSWORD")
	}

	// Initialize handlers
	loginHandler := handler.NewLoginHandler(authService, logger, cfg.DefaultCountryCode, isSecure)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Static files
	staticFS := http.FileServer(http.Dir("web/static"))
	mux.Handle("GET /static/", http.StripPrefix("/static/", staticFS))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// The login page is the only page; the root sends users there.
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != navigation.PathHome {
			handler.NotFoundResponse(w, r, logger)
			return
		}
		navigation.NewRedirector(w, r, navigation.PathLogin).NavigateTo(navigation.PathLogin)
	})

	// Login routes
	loginHandler.RegisterRoutes(mux)

	stack := middleware.Stack(
		loggingMw.Handler,
		middleware.Recover(logger),
		metrics.Middleware,
		securityMw.Handler,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           stack(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a failed listener
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
