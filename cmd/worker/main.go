package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerlake/ledgerlake/internal/app"
	"github.com/ledgerlake/ledgerlake/internal/bronze"
	"github.com/ledgerlake/ledgerlake/internal/holded"
	jobmetrics "github.com/ledgerlake/ledgerlake/internal/jobs"
	"github.com/ledgerlake/ledgerlake/internal/ops"
	"github.com/ledgerlake/ledgerlake/internal/platform/db"
	"github.com/ledgerlake/ledgerlake/internal/silver"
	"github.com/ledgerlake/ledgerlake/internal/silver/accounts"
	"github.com/ledgerlake/ledgerlake/internal/silver/balance"
	"github.com/ledgerlake/ledgerlake/internal/silver/journal"
	"github.com/ledgerlake/ledgerlake/internal/silver/periods"
	"github.com/ledgerlake/ledgerlake/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := cfg.RequireHolded(); err != nil {
		logger.Error("holded credentials", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	metrics := jobmetrics.NewMetrics(nil)

	holdedClient := holded.NewClient(cfg.HoldedBaseURL, cfg.HoldedAPIKey, cfg.HoldedTimeout)
	bronzeRepo := bronze.NewRepository(pool)
	bronzeService := bronze.NewService(holdedClient, bronzeRepo, logger)

	accountsRepo := accounts.NewRepository(pool)
	accountsLoader := accounts.NewLoader(bronzeRepo, accountsRepo, logger)
	periodsRepo := periods.NewRepository(pool)
	periodsLoader := periods.NewLoader(periodsRepo, logger)
	journalRepo := journal.NewRepository(pool)
	normalizer := journal.NewNormalizer(bronzeRepo, periodsRepo, journalRepo, logger)
	resolver := journal.NewResolver(bronzeRepo, accountsRepo, journalRepo, logger)

	balanceRepo := balance.NewRepository(pool)
	engine := balance.NewEngine(balanceRepo, logger)

	runner := silver.NewRunner(accountsLoader, periodsLoader, normalizer, resolver, engine, logger)
	cache := ops.NewCache(redisClient, 10*time.Minute)

	syncJob := jobs.NewBronzeSyncJob(bronzeService, logger, metrics)
	refreshJob := jobs.NewSilverRefreshJob(runner, logger, metrics)
	recomputeJob := jobs.NewBalanceRecomputeJob(engine, cache, logger, metrics)

	syncTask, err := jobs.NewBronzeSyncTask(jobs.BronzeSyncPayload{})
	if err != nil {
		logger.Error("build sync task", slog.Any("error", err))
		os.Exit(1)
	}
	refreshTask, err := jobs.NewSilverRefreshTask(jobs.SilverRefreshPayload{})
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBronzeSync, Handler: syncJob.Handle},
			{Type: jobs.TaskSilverRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskBalanceRecompute, Handler: recomputeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: syncTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
