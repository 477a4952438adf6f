package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"detetive/internal/budget"
	"detetive/internal/cli"
	"detetive/internal/services"
)

// refreshWorkers bounds how many users are evaluated concurrently.
const refreshWorkers = 8

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting notify-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.OpenStores(context.Background(), logger, cfg)

	deps := services.Deps{
		Stores:     res.Stores,
		Thresholds: cli.Thresholds(cfg),
		Budget:     budget.Options{WarnPercent: float64(cfg.BudgetWarnPercent)},
		Logger:     logger,
	}
	amqpClient := cli.ConnectAMQP(logger, cfg)
	if amqpClient != nil {
		deps.Publisher = amqpClient
	}
	svc := services.New(deps)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close data backends", "error", err)
		}
	})

	run := func() {
		start := time.Now()
		created, err := svc.Notifications.RefreshAll(ctx, start.UTC(), refreshWorkers)
		if err != nil {
			logger.Error("Notification refresh failed", "error", err)
			return
		}
		logger.Info("Notification refresh complete",
			"created", created,
			"duration", time.Since(start).String())
	}

	if _, err := c.AddFunc(cfg.NotifySchedule, run); err != nil {
		logger.Error("Invalid notify schedule", "schedule", cfg.NotifySchedule, "error", err)
		return
	}

	logger.Info("Running initial notification refresh...")
	run()

	c.Start()
	logger.Info("Notification scheduler started", "schedule", cfg.NotifySchedule)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Notify worker stopped")
}
