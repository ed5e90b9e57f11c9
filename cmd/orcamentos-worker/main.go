package main

import (
	"context"
	"fmt"
	"os"

	"orcamentos/internal/amqp"
	"orcamentos/internal/backend"
	"orcamentos/internal/cli"
	"orcamentos/internal/config"
	applog "orcamentos/internal/log"
	"orcamentos/internal/services"
	gsheet "orcamentos/internal/sheets/google"
	"orcamentos/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig((*config.Config).ValidateExport)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, "orcamentos-worker")
	logger.Info("Starting orcamentos-worker")

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	// The worker consumes events; it never publishes them.
	bcfg.AMQPURL = ""
	if bcfg.Type != backend.SQLiteBackend {
		logger.Warn("Export worker is reading a non-persistent backend", "backend", bcfg.Type)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	sheets, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	var (
		consumer   worker.Consumer
		amqpClient *amqp.Client
	)
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			_ = res.Cleanup()
			os.Exit(1)
		}
		consumer = amqpClient
	} else {
		logger.Info("AMQP disabled, running periodic backfill only")
	}

	processor := services.NewExportProcessor(res.Store, sheets, services.ExportProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	}, logger)
	w := worker.NewExportWorker(consumer, processor, logger)

	// Resources close only after Run has returned.
	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	runErr := w.Run(ctx)
	if amqpClient != nil {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
	}
	if err := res.Cleanup(); err != nil {
		logger.Error("Backend cleanup error", applog.FieldError, err)
	}
	if runErr != nil {
		logger.Error("Export worker failed", applog.FieldError, runErr)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
