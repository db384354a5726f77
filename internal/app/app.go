package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avolkhin/billing-ledger/internal/api"
	"github.com/avolkhin/billing-ledger/internal/config"
	"github.com/avolkhin/billing-ledger/internal/db"
	"github.com/avolkhin/billing-ledger/internal/idempotency"
	"github.com/avolkhin/billing-ledger/internal/ledger"
	"github.com/avolkhin/billing-ledger/internal/observability"
	"github.com/avolkhin/billing-ledger/internal/repository"
	"github.com/avolkhin/billing-ledger/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and snapshot worker, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	repo := repository.NewRepository(pool)

	currencies, err := repo.ListCurrencies(ctx)
	if err != nil {
		return fmt.Errorf("load currencies: %w", err)
	}
	registry, err := ledger.NewRegistry(currencies, cfg.BaseCurrency)
	if err != nil {
		return fmt.Errorf("build currency registry: %w", err)
	}
	logger.Info("currency registry loaded",
		zap.Strings("currencies", registry.Codes()),
		zap.String("base", registry.Base().Code),
	)

	store := repository.NewStore(pool)
	validator := ledger.NewValidator(registry)
	processor := ledger.NewProcessor(store, registry, logger)

	var redisCmd redis.Cmdable
	if redisClient != nil {
		redisCmd = redisClient
	}
	idemStore := idempotency.NewStore(redisCmd, pool, cfg.IdempotencyTTL)

	snapshotWorker := worker.NewBalanceSnapshotWorker(repo).WithInterval(cfg.SnapshotInterval)
	stopWorker := snapshotWorker.Run(ctx)
	logger.Info("balance snapshot worker started", zap.Duration("interval", cfg.SnapshotInterval))

	router := api.NewRouter(cfg, logger, pool, redisCmd, idemStore, validator, processor, repo)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping balance snapshot worker")
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
