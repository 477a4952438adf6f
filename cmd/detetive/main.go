package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"detetive/internal/budget"
	"detetive/internal/cache"
	"detetive/internal/cli"
	apphttp "detetive/internal/http"
	"detetive/internal/middleware/auth"
	"detetive/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.OpenStores(context.Background(), logger, cfg)

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("Failed to initialize token signer", "error", err)
		os.Exit(1)
	}

	// Derived views (budget summaries, dashboards) live in one LRU.
	views := cache.NewLRUCache[any](1000, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(views)
	cacheManager.StartCleanup(time.Minute)

	deps := services.Deps{
		Stores:     res.Stores,
		Cache:      views,
		Tokens:     tokens,
		Thresholds: cli.Thresholds(cfg),
		Budget:     budget.Options{WarnPercent: float64(cfg.BudgetWarnPercent)},
		Logger:     logger,
	}
	amqpClient := cli.ConnectAMQP(logger, cfg)
	if amqpClient != nil {
		deps.Publisher = amqpClient
	}
	svc := services.New(deps)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		Services:     svc,
		Stores:       res.Stores,
		Tokens:       tokens,
		Cache:        views,
		RateLimitRPM: cfg.RateLimitRPM,
		Logger:       logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", "error", err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close data backends", "error", err)
		}
	})

	logger.Info("Starting detetive server", "port", cfg.Port, "backends", res.Stores.Selection)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
