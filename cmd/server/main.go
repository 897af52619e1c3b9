package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/corebank/banking-backend/internal/adapter/httpapi"
	"github.com/corebank/banking-backend/internal/adapter/lock"
	"github.com/corebank/banking-backend/internal/adapter/queue"
	"github.com/corebank/banking-backend/internal/adapter/repository/postgres"
	"github.com/corebank/banking-backend/internal/config"
	"github.com/corebank/banking-backend/internal/resilience"
	"github.com/corebank/banking-backend/internal/usecase/account"
	"github.com/corebank/banking-backend/internal/usecase/seeder"
	"github.com/corebank/banking-backend/internal/usecase/transfer"
	"github.com/corebank/banking-backend/internal/worker"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Storage
	db, err := postgres.NewDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	transferRepo := postgres.NewTransferRepository(db)
	accountRepo := postgres.NewAccountRepository(db)

	// Redis backs both the work queues and the step locks
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	workQueue := queue.NewRedisQueue(redisClient)
	lockManager := lock.NewRedsyncManager(redisClient, cfg.Lock.Expiry)

	// Services
	accountService := account.NewAccountService(accountRepo, logger)
	gateway := resilience.NewGatewayBreaker(accountService, resilience.BreakerSettings{
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		Cooldown:            cfg.Breaker.Cooldown,
	})
	retryPolicy := resilience.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.BaseBackoff)
	transferService := transfer.NewTransferService(transferRepo, gateway, workQueue, retryPolicy, logger)

	if cfg.SeedDemo {
		if err := seeder.NewDemoSeeder(accountRepo).Seed(ctx); err != nil {
			return fmt.Errorf("failed to seed demo accounts: %w", err)
		}
		logger.Info("demo accounts seeded")
	}

	// The queue is at-least-once, not the system of record: requeue any
	// non-terminal transfer whose work item may have been lost.
	if err := transferService.Reconcile(ctx); err != nil {
		return fmt.Errorf("failed to reconcile open transfers: %w", err)
	}

	// Workers
	batcher := worker.NewBatcher(
		transferService,
		workQueue,
		lockManager,
		resilience.NewBulkhead(cfg.Bulkhead.MaxConcurrent),
		worker.Config{
			MaxBatchSize: cfg.Batch.MaxSize,
			PollInterval: cfg.Batch.PollInterval,
			MaxRetries:   cfg.Retry.MaxRetries,
		},
		logger,
	)
	batcher.Start(ctx)

	// HTTP
	handler := httpapi.NewHandler(transferService, accountService, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: httpapi.NewRouter(handler),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown incomplete", zap.Error(err))
	}

	batcher.Stop()
	logger.Info("server stopped")
	return nil
}
