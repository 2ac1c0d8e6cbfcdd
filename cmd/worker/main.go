package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/bukubesar/bukubesar/internal/app"
	jobmetrics "github.com/bukubesar/bukubesar/internal/jobs"
	"github.com/bukubesar/bukubesar/internal/ledger/balance"
	"github.com/bukubesar/bukubesar/internal/ledger/book"
	"github.com/bukubesar/bukubesar/internal/ledger/coa"
	"github.com/bukubesar/bukubesar/internal/ledger/journal"
	"github.com/bukubesar/bukubesar/internal/observability"
	"github.com/bukubesar/bukubesar/internal/platform/cache"
	"github.com/bukubesar/bukubesar/internal/platform/db"
	"github.com/bukubesar/bukubesar/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	accountRepo := coa.NewRepository(pool)
	journalRepo := journal.NewRepository(pool)

	balanceCache := balance.NewCache(redisClient, cfg.BalanceCacheTTL)
	calculator := balance.NewCalculator(accountRepo, journalRepo, balanceCache)

	ledgerService := book.NewService(logger, accountRepo, journalRepo, calculator, book.Options{
		Metrics: metrics,
		Cache:   balanceCache,
	})

	handlers := jobs.NewHandlers(
		ledgerService,
		accountRepo,
		logger,
		metrics,
		jobmetrics.NewMetrics(metrics.Registerer()),
	)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IntegrityCron, Task: jobs.NewGLIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: jobs.NewCacheRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
