package main

import (
	"context"
	"errors"
	"time"

	"saldo/internal/cli"
	"saldo/internal/log"
	"saldo/internal/sheets"
	gsheet "saldo/internal/sheets/google"
	"saldo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting saldo-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	res := cli.InitBackend(context.Background(), logger, cfg)

	if cfg.DataBackend == "memory" {
		logger.Warn("Worker is using its own in-memory store; edits made through the API will not reach it")
	}

	var exporter sheets.Exporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			ProjectionSheet: cfg.GoogleProjectionSheet,
			StatementsSheet: cfg.GoogleStatementsSheet,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.NewProjectionWorker(res.Projections, exporter, worker.Config{
		Months:   cfg.ProjectionMonths,
		Opening:  cfg.Opening(),
		Schedule: cfg.RollSchedule,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := w.Stop(ctx); err != nil {
			logger.Error("Worker stop error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	if err := w.Start(ctx); err != nil {
		cli.Fatal(logger, "Failed to start projection worker", err)
	}

	if res.AMQP != nil {
		go func() {
			err := res.AMQP.ConsumeTemplateChanges(ctx, w.HandleChange)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
