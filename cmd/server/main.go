// Package main is the entrypoint for the TaskPipe API server.
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

	"github.com/dkathuria/taskpipe/internal/api"
	"github.com/dkathuria/taskpipe/internal/api/handler"
	mw "github.com/dkathuria/taskpipe/internal/api/middleware"
	"github.com/dkathuria/taskpipe/internal/batch"
	"github.com/dkathuria/taskpipe/internal/cache"
	"github.com/dkathuria/taskpipe/internal/config"
	"github.com/dkathuria/taskpipe/internal/jobstore"
	"github.com/dkathuria/taskpipe/internal/metrics"
	"github.com/dkathuria/taskpipe/internal/pipeline"
	"github.com/dkathuria/taskpipe/internal/processor"
	"github.com/dkathuria/taskpipe/internal/store"
	"github.com/joho/godotenv"
)

const (
	shutdownTimeout  = 30 * time.Second
	metricsRetention = 48 * time.Hour
	requestsPerMin   = 60
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; deployments set real environment variables.
	_ = godotenv.Load()

	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store, job store, and metrics sink
	pgStore := store.NewPostgresStore(pool)
	jobStore := jobstore.NewStore(redisCache, jobstore.Config{
		JobTTL:        cfg.Jobs.JobTTL,
		BatchTTL:      cfg.Jobs.BatchTTL,
		MaxLogEntries: cfg.Jobs.MaxLogEntries,
	})
	sink := metrics.NewRedisSink(redisCache, metricsRetention)

	// 6. Create remote processor clients
	svc := cfg.Services
	procs := pipeline.Processors{
		AI:          processor.NewAIClient(svc.AIManagerURL, svc.APIKey, svc.Timeout),
		Files:       processor.NewFileClient(svc.FileServiceURL, svc.APIKey, svc.Timeout),
		Scraper:     processor.NewScraperClient(svc.ScraperURL, svc.APIKey, svc.Timeout),
		Transcriber: processor.NewTranscriberClient(svc.TranscriberURL, svc.APIKey, svc.Timeout),
		Converter:   processor.NewOperationClient(svc.ConverterURL, svc.APIKey, svc.Timeout),
		Extractor:   processor.NewOperationClient(svc.ExtractorURL, svc.APIKey, svc.Timeout),
	}

	// 7. Create the pipeline executor and batch coordinator
	executor := pipeline.NewExecutor(jobStore, procs, sink, pgStore, pipeline.Config{
		Budget:          cfg.Jobs.Budget,
		PollInterval:    cfg.Jobs.PollInterval,
		MaxPollAttempts: cfg.Jobs.MaxPollAttempts,
	})
	coordinator := batch.NewCoordinator(jobStore, procs.Files, sink, batch.Config{
		Concurrency: cfg.Jobs.BatchConcurrency,
	})

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, requestsPerMin),

		HealthHandler: handler.NewHealthHandler(pgStore, redisCache),

		CreateJobHandler: handler.NewCreateJobHandler(executor),
		GetJobHandler:    handler.NewGetJobHandler(executor),
		DeleteJobHandler: handler.NewDeleteJobHandler(executor),

		CreateBatchHandler: handler.NewCreateBatchHandler(coordinator),
		GetBatchHandler:    handler.NewGetBatchHandler(coordinator),
		CancelBatchHandler: handler.NewCancelBatchHandler(coordinator),
		RetryBatchHandler:  handler.NewRetryBatchHandler(coordinator),

		ListHistoryHandler: handler.NewListHistoryHandler(pgStore),
		GetHistoryHandler:  handler.NewGetHistoryHandler(pgStore),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout. In-flight jobs run on background
	// contexts; their records stay in the cache at whatever state they
	// last wrote.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
