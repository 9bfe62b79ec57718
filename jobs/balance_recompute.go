package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ledgerlake/ledgerlake/internal/jobs"
	"github.com/ledgerlake/ledgerlake/internal/silver/balance"
)

// BalanceRecomputer describes the engine surface the job drives.
type BalanceRecomputer interface {
	RecomputeAll(ctx context.Context) (balance.Stats, error)
	RecomputeFrom(ctx context.Context, periodID int64) (balance.Stats, error)
}

// CacheBuster invalidates cached balance reads after a recompute.
type CacheBuster interface {
	Bump(ctx context.Context) error
}

// BalanceRecomputeJob rebuilds the account balance table.
type BalanceRecomputeJob struct {
	Engine  BalanceRecomputer
	Cache   CacheBuster
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewBalanceRecomputeJob constructs the job handler.
func NewBalanceRecomputeJob(engine BalanceRecomputer, cache CacheBuster, logger *slog.Logger, metrics *jobmetrics.Metrics) *BalanceRecomputeJob {
	return &BalanceRecomputeJob{
		Engine:  engine,
		Cache:   cache,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the balance recompute job.
func (j *BalanceRecomputeJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Engine == nil {
		return errors.New("balance recompute: dependencies not configured")
	}
	var payload BalanceRecomputePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskBalanceRecompute)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	var stats balance.Stats
	var err error
	if payload.PeriodID > 0 {
		stats, err = j.Engine.RecomputeFrom(ctx, payload.PeriodID)
	} else {
		stats, err = j.Engine.RecomputeAll(ctx)
	}
	if err != nil {
		if errors.Is(err, balance.ErrPeriodNotFound) {
			j.log().Error("unknown period", slog.Int64("period_id", payload.PeriodID))
			return asynq.SkipRetry
		}
		resultErr = err
		j.log().Error("recompute balances", slog.Int64("period_id", payload.PeriodID), slog.Any("error", err))
		return resultErr
	}

	if j.Cache != nil {
		if err := j.Cache.Bump(ctx); err != nil {
			j.log().Warn("bust balance cache", slog.Any("error", err))
		}
	}

	j.log().Info("recomputed balances",
		slog.Int64("period_id", payload.PeriodID), slog.Int("rows", stats.Rows),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *BalanceRecomputeJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *BalanceRecomputeJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBalanceRecompute))
	}
	return slog.Default().With(slog.String("job", TaskBalanceRecompute))
}

func (j *BalanceRecomputeJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *BalanceRecomputeJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
