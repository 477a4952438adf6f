// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/detetive, cmd/notify-worker, cmd/export-worker and cmd/detetivectl.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"detetive/internal/amqp"
	"detetive/internal/backend"
	"detetive/internal/config"
	"detetive/internal/core"
	applog "detetive/internal/log"
	"detetive/internal/notify"
	"detetive/internal/storage/memory"
)

// SetupLogger initializes structured logging at the LOG_LEVEL level.
// Returns the configured logger and sets it as the default logger.
// Components are attached by the packages through log.Wrap.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: applog.ParseLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStores resolves the per-domain backends. The memory backend is seeded
// from MOCK_FIXTURES, or the built-in demo data. Exits the process on failure.
func OpenStores(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.Result {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Resolve(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open data backends", "error", err)
		os.Exit(1)
	}
	if cfg.Uses(string(backend.MemoryBackend)) && cfg.MockFixtures == "" {
		logger.Info("Memory backend seeded with demo data", "email", memory.DemoEmail)
	}
	return res
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Thresholds converts the notification settings of cfg.
func Thresholds(cfg *config.Config) notify.Thresholds {
	return notify.Thresholds{
		BillDueWindowDays:     cfg.BillDueWindowDays,
		CardWarnPercent:       float64(cfg.CardWarnPercent),
		CardCriticalPercent:   float64(cfg.CardCriticalPercent),
		BudgetWarnPercent:     float64(cfg.BudgetWarnPercent),
		DefaultMinimumBalance: core.Cents(cfg.DefaultMinBalanceCents()),
	}
}

// ConnectAMQP opens the broker client when AMQP_URL is set. A nil client
// means events are not published.
func ConnectAMQP(logger *slog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPExportQueue, cfg.AMQPNotifyQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	logger.Info("AMQP client connected", "exchange", cfg.AMQPExchange)
	return client
}
