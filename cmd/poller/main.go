package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/genapi"
	"server/internal/infra"
	"server/internal/ingest"
	"server/internal/scheduler"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "poller")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("poller: db connection failed")
	}
	defer pool.Close()

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	store, err := storage.NewFileStore(storagePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("poller: failed to configure storage")
	}

	client := genapi.NewClient(genapi.Options{
		BaseURL: cfg.GenAPIBaseURL,
		APIKey:  cfg.GenAPIKey,
		Timeout: cfg.GenAPITimeout,
	})

	ingestor := ingest.New(ingest.Options{
		HTTPClient:      &http.Client{Timeout: cfg.IngestTimeout},
		Store:           store,
		DownloadTimeout: cfg.IngestTimeout,
		Logger:          logger,
	})

	jobs := repo.NewJobRepository(pool)
	sched := scheduler.New(jobs, client, ingestor, logger, scheduler.Config{
		TickInterval:   cfg.PollTick,
		BatchSize:      cfg.PollBatchSize,
		MaxJobLifetime: cfg.MaxJobLifetime,
		Workers:        cfg.PollWorkers,
	})

	sched.Start(ctx)
	<-ctx.Done()
	sched.Stop()
	logger.Info().Msg("poller: stopped")
}
