package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jewelcraft/metalpricing/internal/app"
	"github.com/jewelcraft/metalpricing/internal/catalog"
	"github.com/jewelcraft/metalpricing/internal/observability"
	"github.com/jewelcraft/metalpricing/internal/platform/cache"
	"github.com/jewelcraft/metalpricing/internal/platform/db"
	"github.com/jewelcraft/metalpricing/internal/pricing"
	"github.com/jewelcraft/metalpricing/internal/pricingsync"
	"github.com/jewelcraft/metalpricing/internal/rates"
	"github.com/jewelcraft/metalpricing/internal/shared"
	"github.com/jewelcraft/metalpricing/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolConfig())
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := cache.NewClient(cfg.RedisOptions())
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := cache.Ping(ctx, redisClient); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()

	ratesService := rates.NewService(rates.NewRepository(pool), rates.NewCache(redisClient, cfg.RateCacheTTL), nil, nil, nil, logger)
	syncer := pricingsync.NewSyncer(catalog.NewRepository(pool), pricingsync.Options{
		Concurrency: cfg.SyncConcurrency,
		Calculator:  pricing.DefaultCalculator,
		Metrics:     metrics.Jobs(),
		Logger:      logger,
	})
	runner := pricingsync.NewRunner(syncer, ratesService, pricingsync.NewStatusStore(redisClient), cfg.SyncTimeout, logger)
	syncJob := jobs.NewPricingSyncJob(runner, ratesService, logger, metrics.Jobs())
	cleanupJob := &jobs.IdempotencyCleanupJob{
		Store:     shared.NewIdempotencyStore(pool),
		Retention: cfg.IdempotencyTTL,
		Logger:    logger,
		Metrics:   metrics.Jobs(),
	}

	resync, err := jobs.ScheduledPricingSync(cfg.SyncCron)
	if err != nil {
		logger.Error("build scheduled sync task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.AsynqRedis(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPricingSync, Handler: syncJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{resync, jobs.ScheduledIdempotencyCleanup()},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting worker", slog.String("sync_cron", cfg.SyncCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
