package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"sentiment-sales-risk/internal/ingest"
	"sentiment-sales-risk/internal/interfaces"
	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/monitoring"
	"sentiment-sales-risk/internal/pipeline"
	"sentiment-sales-risk/internal/pipeline/pipelineobs"
	"sentiment-sales-risk/internal/sentiment"
	"sentiment-sales-risk/internal/storage"
	"sentiment-sales-risk/internal/store"
	"sentiment-sales-risk/internal/trace"
	"sentiment-sales-risk/internal/types"
)

const serviceName = "sentiment-sales-risk"

// app holds everything a command needs; Close releases it.
type app struct {
	cfg      *store.Config
	store    *storage.Store
	ingest   *ingest.Service
	pipeline interfaces.Pipeline
	metrics  *monitoring.MetricsCollector
	health   *monitoring.HealthChecker
}

// initializeSystem initializes env, logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// configPath resolves --config, then CONFIG_PATH, then config.yaml.
func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

func buildApp(ctx context.Context, cfg *store.Config) (*app, error) {
	db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		metrics: monitoring.NewMetricsCollector(serviceName, version),
		health:  monitoring.NewHealthChecker(serviceName, version),
	}

	var ingestor interfaces.Ingestor
	if cfg.Ingestion.Enabled {
		a.ingest = ingest.NewServiceFromConfig(cfg)
		ingestor = a.ingest
	} else {
		logger.Info(ctx, "Ingestion disabled; empty windows fall back to synthetic data")
	}
	a.store = storage.New(db, ingestor)

	if cfg.Seed.Enabled {
		if err := a.store.SeedDemo(ctx, cfg.Seed.Products, cfg.Seed.Days, types.Today()); err != nil {
			a.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	a.pipeline = pipelineobs.Wrap(
		pipeline.New(a.store, sentiment.NewScorerFromConfig(cfg)),
		a.metrics,
	)

	a.health.AddCheck("database", monitoring.DatabaseHealthCheck(a.store))
	a.health.AddCheck("ingestion", monitoring.IngestionHealthCheck(cfg.Ingestion.Enabled, cfg.YouTubeAPIKey()))

	logger.Info(ctx, "Application initialized",
		"mode", cfg.Mode,
		"database", cfg.Database.Driver,
		"ingestion", cfg.Ingestion.Enabled,
		"seed", cfg.Seed.Enabled,
	)
	return a, nil
}

func (a *app) Close() {
	if a.ingest != nil {
		a.ingest.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn(context.Background(), "Failed to close database", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = trace.Shutdown(ctx)
}
