package main

import (
	"context"
	"errors"
	"os"
	"time"

	"detetive/internal/cli"
	"detetive/internal/sheets"
	gsheet "detetive/internal/sheets/google"
	memsheet "detetive/internal/sheets/memory"
	"detetive/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting export-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	// Without a spreadsheet the worker runs dry against the in-memory
	// exporter, which is handy for checking the message flow locally.
	var exporter sheets.TransactionExporter
	if cfg.GoogleSpreadsheetID != "" {
		if err := cfg.ValidateExport(); err != nil {
			logger.Error("Export configuration validation failed", "error", err)
			os.Exit(1)
		}
		client, err := gsheet.NewFromConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = memsheet.New()
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting in memory")
	}

	res := cli.OpenStores(context.Background(), logger, cfg)
	amqpClient := cli.ConnectAMQP(logger, cfg)

	exportWorker := worker.NewExportWorker(worker.Stores{
		Users:        res.Stores.Users,
		Transactions: res.Stores.Transactions,
		Accounts:     res.Stores.Accounts,
		Categories:   res.Stores.Categories,
		Cards:        res.Stores.Cards,
	}, exporter)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("Failed to close AMQP client", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close data backends", "error", err)
		}
	})

	// Catch up on anything missed while the worker was down.
	logger.Info("Performing startup export...")
	if err := exportWorker.StartupExport(ctx); err != nil {
		logger.Error("Startup export failed", "error", err)
	}

	go func() {
		err := amqpClient.ConsumeTransactionExports(ctx, exportWorker.HandleExportMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Export worker stopped")
}
