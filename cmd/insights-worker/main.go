package main

import (
	"context"
	"errors"
	"os"

	"spendlens/internal/amqp"
	"spendlens/internal/analytics"
	"spendlens/internal/cli"
	"spendlens/internal/log"
	"spendlens/internal/services"
	"spendlens/internal/sheets"
	gsheet "spendlens/internal/sheets/google"
	"spendlens/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info", nil).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, nil)
	logger.Info("Starting insights-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the insights worker")
		os.Exit(1)
	}

	ctx := context.Background()
	res, err := cli.InitStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()

	generator, closeGenerator := cli.InitGenerator(ctx, logger, cfg)
	defer closeGenerator()

	// Sheets export is optional
	var exporter sheets.ReportExporter
	if cfg.SheetsEnabled() {
		exp, err := gsheet.NewExporter(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		exporter = exp
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// The worker reads the store directly; the API server owns the list cache.
	engine := analytics.New()
	expenses := services.NewExpenseService(res.Store, nil, nil, logger)
	w := worker.NewInsightsWorker(
		services.NewInsightService(expenses, res.Store, generator, engine, logger),
		services.NewAnalyticsService(expenses, res.Store, engine, logger),
		exporter,
		logger,
	)

	ctx, cancel := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)
	defer cancel()

	logger.Info("Consuming expense change events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"insights", generator.Name())
	if err := amqpClient.ConsumeExpenseChanged(ctx, w.HandleExpenseChanged); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Insights worker stopped")
}
