package main

import (
	"context"
	"errors"
	"os"

	"cassa/internal/amqp"
	"cassa/internal/backend"
	"cassa/internal/cli"
	"cassa/internal/log"
	"cassa/internal/sheets"
	gsheet "cassa/internal/sheets/google"
	memsheet "cassa/internal/sheets/memory"
	"cassa/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.Info("Starting cassa-worker", log.FieldOperation, log.OpStartup, log.FieldBackend, cfg.DataBackend)

	// The archive is the snapshot backend the ledger writes to.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	backendResult, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if backendResult.Cleanup != nil {
		defer func() {
			if err := backendResult.Cleanup(); err != nil {
				logger.Error("Failed to close backend", log.FieldError, err)
			}
		}()
	}

	var exporter sheets.SummaryExporter
	if cfg.ExportEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSummarySheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger.WithComponent(log.ComponentSheets))
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSummarySheetName)
	} else {
		exporter = memsheet.New()
		logger.Warn("Google Sheets disabled, exported summaries are kept in memory only")
	}

	// A nil Consumer leaves the worker on the periodic catch-up pass alone.
	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		consumer = client
	} else {
		logger.Info("AMQP disabled, relying on periodic archive sync", "interval", cfg.SyncInterval)
	}

	w := worker.NewExportWorker(exporter, backendResult.Backend, logger.WithComponent(log.ComponentWorker))
	if err := w.Run(ctx, consumer, cfg.SyncInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
