package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jewelcraft/metalpricing/internal/adminauth"
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
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PoolConfig())
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := cache.NewClient(cfg.RedisOptions())
	if err := cache.Ping(ctx, redisClient); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	authorizer, err := adminauth.NewTokenAuthorizer(cfg.AdminTokenHash)
	if err != nil {
		logger.Error("init admin auth", slog.Any("error", err))
		os.Exit(1)
	}
	requireAdmin := adminauth.Middleware{Authorizer: authorizer, Logger: logger}.RequireAdmin

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	jobClient, err := jobs.NewClient(cfg.AsynqRedis())
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	ratesRepo := rates.NewRepository(dbpool)
	ratesCache := rates.NewCache(redisClient, cfg.RateCacheTTL)
	ratesService := rates.NewService(ratesRepo, ratesCache, jobClient, auditLogger, idempotencyStore, logger)

	quoter := pricing.NewQuoter(ratesService, pricing.DefaultCalculator)
	catalogRepo := catalog.NewRepository(dbpool)
	vocabulary := catalog.NewSettingsOptions(dbpool)
	catalogService := catalog.NewService(catalogRepo, quoter, vocabulary, auditLogger, logger)

	syncer := pricingsync.NewSyncer(catalogRepo, pricingsync.Options{
		Concurrency: cfg.SyncConcurrency,
		Calculator:  pricing.DefaultCalculator,
		Metrics:     metrics.Jobs(),
		Logger:      logger,
	})
	runner := pricingsync.NewRunner(syncer, ratesService, pricingsync.NewStatusStore(redisClient), cfg.SyncTimeout, logger)

	inspector := asynq.NewInspector(cfg.AsynqRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		RatesHandler:   rates.NewHandler(logger, ratesService, requireAdmin),
		PricingHandler: pricing.NewHandler(logger, quoter, vocabulary),
		SyncHandler:    pricingsync.NewHandler(logger, runner, requireAdmin),
		CatalogHandler: catalog.NewHandler(logger, catalogService, requireAdmin),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
