package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"envelopebro/internal/amqp"
	"envelopebro/internal/config"
	gexport "envelopebro/internal/export/google"
	"envelopebro/internal/ledger"
	applog "envelopebro/internal/log"
	"envelopebro/internal/storage"
	"envelopebro/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting envelopebro-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Export backend is optional; without it the worker only reconciles.
	var sheetsClient *gexport.Client
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err = gexport.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	engine := ledger.NewService(repo, nil, logger, ledger.Options{AllowOverspend: cfg.AllowOverspend})

	exportEnabled := sheetsClient != nil

	var syncWorker *worker.SyncWorker
	var amqpClient *amqp.Client
	if exportEnabled {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		syncWorker = worker.NewSyncWorker(repo, sheetsClient, sheetsClient, engine, cfg.SyncBatchSize, logger)

		logger.Info("Performing startup sync check...")
		if err := syncWorker.StartupSyncCheck(ctx); err != nil {
			logger.Error("Failed startup sync check", applog.FieldError, err)
			// Keep running; the periodic scan retries.
		}
	} else {
		syncWorker = worker.NewSyncWorker(repo, nil, nil, engine, cfg.SyncBatchSize, logger)
	}

	g, gctx := errgroup.WithContext(ctx)

	if exportEnabled {
		g.Go(func() error {
			err := amqpClient.Consume(gctx, syncWorker.HandleMessage)
			if err != nil && err != context.Canceled {
				logger.Error("Message consumption failed", applog.FieldError, err)
				return err
			}
			return nil
		})

		g.Go(func() error {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := syncWorker.ProcessPending(gctx); err != nil {
						logger.Error("Periodic sync failed", applog.FieldError, err)
					}
				}
			}
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := syncWorker.ReconcileBalances(gctx); err != nil {
					logger.Error("Periodic reconciliation failed", applog.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
