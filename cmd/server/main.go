package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fuelmetrics/fuelmetrics-api/internal/api"
	"github.com/fuelmetrics/fuelmetrics-api/internal/config"
	"github.com/fuelmetrics/fuelmetrics-api/internal/db"
	"github.com/fuelmetrics/fuelmetrics-api/internal/geo"
	"github.com/fuelmetrics/fuelmetrics-api/internal/ingest"
	"github.com/fuelmetrics/fuelmetrics-api/internal/pipeline"
	"github.com/fuelmetrics/fuelmetrics-api/internal/repository"
	"github.com/fuelmetrics/fuelmetrics-api/internal/schema"
	"github.com/fuelmetrics/fuelmetrics-api/internal/source"
)

const serviceName = "fuelmetrics-api"

func main() {
	if os.Getenv("APP_ENV") != "production" {
		// A missing .env is fine; the environment may already be set.
		_ = godotenv.Load()
	}

	cfg := config.Load()

	// Initialize structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting "+serviceName, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dedup, err := ingest.ParseDedupPolicy(cfg.Ingest.Dedup)
	if err != nil {
		slog.Error("invalid ingest configuration", "error", err)
		os.Exit(1)
	}
	ingester := ingest.New(ingest.Options{
		Anchors: schema.AnchorPolicy{
			MinMatches: cfg.Ingest.MinAnchors,
			ScanRows:   cfg.Ingest.HeaderScanRows,
		},
		Dedup:  dedup,
		Logger: logger,
	})

	var runs pipeline.RunStore
	var observations pipeline.ObservationStore
	if cfg.Database.Enabled {
		dbPool := connectWithRetry(ctx, cfg, 30)
		defer dbPool.Close()

		if err := db.RunMigrations(ctx, dbPool); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		runs = repository.NewIngestionRunRepository(dbPool)
		observations = repository.NewObservationRepository(dbPool)
	} else {
		slog.Warn("database disabled, ingestion history is kept in memory only")
		store := pipeline.NewMemoryStore()
		runs, observations = store, store
	}

	var fetchOpts []source.Option
	if cfg.Source.CachePath != "" {
		fetchOpts = append(fetchOpts, source.WithCache(cfg.Source.CachePath))
	}
	fetcher := source.NewHTTPFetcher(cfg.Source, cfg.Upload.MaxFileSize, fetchOpts...)

	svc := pipeline.NewService(ingester, runs, observations, fetcher, pipeline.Config{
		MaxRetries:    cfg.Source.MaxRetries,
		RetryBaseWait: cfg.Source.RetryBaseWait,
		StaleAfter:    cfg.Source.StaleAfter,
	})

	// Serve the last good run while the first download is in flight.
	if restored, err := svc.Restore(ctx); err != nil {
		slog.Warn("could not restore previous snapshot", "error", err)
	} else if !restored {
		slog.Info("no previous snapshot to restore")
	}

	scheduler := pipeline.NewScheduler(svc, cfg.Source.RefreshInterval)
	go scheduler.Run(ctx)

	router := api.NewRouter(svc, geo.NewGeocoder(), cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server listening",
			"port", cfg.Server.Port,
			"service", serviceName,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server exited")
}

func connectWithRetry(ctx context.Context, cfg *config.Config, maxRetries int) *db.Pool {
	for i := 0; i < maxRetries; i++ {
		pool, err := db.Connect(ctx, cfg.Database)
		if err == nil {
			return pool
		}
		slog.Warn("database not ready, retrying...",
			"attempt", i+1,
			"max_retries", maxRetries,
			"error", err,
		)
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			slog.Error("interrupted while waiting for database")
			os.Exit(1)
		}
	}
	slog.Error("failed to connect to database after retries")
	os.Exit(1)
	return nil
}
