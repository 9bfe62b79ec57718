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

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ledgerlake/ledgerlake/cmd/ledgerlake/cli"
	"github.com/ledgerlake/ledgerlake/internal/app"
	"github.com/ledgerlake/ledgerlake/internal/ops"
	"github.com/ledgerlake/ledgerlake/internal/platform/db"
	"github.com/ledgerlake/ledgerlake/internal/silver/balance"
	"github.com/ledgerlake/ledgerlake/jobs"
)

var errCommandFailed = errors.New("command failed")

func main() {
	rootCmd := &cobra.Command{
		Use:   "ledgerlake",
		Short: "Accounting data pipeline from Holded into Postgres",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newLoadCommand())
	rootCmd.AddCommand(newRecomputeCommand())
	rootCmd.AddCommand(newJobsCommand())

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errCommandFailed) {
			slog.Default().Error("ledgerlake", slog.Any("error", err))
		}
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the operational HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return errCommandFailed
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	queue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		return errCommandFailed
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	balanceRepo := balance.NewRepository(pool)
	cache := ops.NewCache(redisClient, 10*time.Minute)
	handler := ops.NewHandler(balanceRepo, cache, queue, logger)
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := ops.NewRouter(ops.RouterParams{
		Config:      cfg,
		Handler:     handler,
		JobsHandler: jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server", slog.Any("error", err))
			return errCommandFailed
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", slog.Any("error", err))
	}
	return nil
}

func withPipelineCLI(fn func(ctx context.Context, pipeline *cli.PipelineCLI) int) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		_ = jobsCLI.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := fn(ctx, cli.NewPipelineCLI(jobsCLI, jobsCLI)); code != 0 {
		return errCommandFailed
	}
	return nil
}

func newSyncCommand() *cobra.Command {
	var (
		fullRefresh bool
		since       string
		jsonOutput  bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Enqueue a bronze landing run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipelineCLI(func(ctx context.Context, pipeline *cli.PipelineCLI) int {
				return pipeline.SyncCommand(ctx, cli.SyncOptions{
					FullRefresh: fullRefresh,
					Since:       since,
					JSONOutput:  jsonOutput,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&fullRefresh, "full-refresh", false, "replace all landed rows instead of the incremental window")
	cmd.Flags().StringVar(&since, "since", "", "start of the sync window (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit a JSON summary")
	return cmd
}

func newLoadCommand() *cobra.Command {
	var (
		fullRefresh bool
		tables      []string
		jsonOutput  bool
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Enqueue a silver layer load",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipelineCLI(func(ctx context.Context, pipeline *cli.PipelineCLI) int {
				return pipeline.RefreshCommand(ctx, cli.RefreshOptions{
					FullRefresh: fullRefresh,
					Tables:      tables,
					JSONOutput:  jsonOutput,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&fullRefresh, "full-refresh", false, "truncate silver tables before loading")
	cmd.Flags().StringSliceVar(&tables, "tables", nil, "subset of stages to run (accounts, periods, entries, lines, balances)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit a JSON summary")
	return cmd
}

func newRecomputeCommand() *cobra.Command {
	var (
		periodID   int64
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Enqueue a balance recompute",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipelineCLI(func(ctx context.Context, pipeline *cli.PipelineCLI) int {
				return pipeline.RecomputeCommand(ctx, cli.RecomputeOptions{
					PeriodID:   periodID,
					JSONOutput: jsonOutput,
				})
			})
		},
	}
	cmd.Flags().Int64Var(&periodID, "period-id", 0, "recompute from this period onward (0 rebuilds everything)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit a JSON summary")
	return cmd
}

func newJobsCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Show queue depth counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipelineCLI(func(ctx context.Context, pipeline *cli.PipelineCLI) int {
				return pipeline.StatusCommand(ctx, cli.StatusOptions{JSONOutput: jsonOutput})
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit a JSON summary")
	return cmd
}
