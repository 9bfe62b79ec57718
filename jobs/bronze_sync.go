package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerlake/ledgerlake/internal/bronze"
	jobmetrics "github.com/ledgerlake/ledgerlake/internal/jobs"
)

// BronzeSyncer describes the landing behaviour the job drives.
type BronzeSyncer interface {
	SyncAccounts(ctx context.Context, fullRefresh bool) (bronze.SyncSummary, error)
	SyncLedger(ctx context.Context, since time.Time, fullRefresh bool) (bronze.SyncSummary, error)
}

// BronzeSyncJob lands the Holded extract into the bronze schema.
type BronzeSyncJob struct {
	Service BronzeSyncer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewBronzeSyncJob constructs the job handler.
func NewBronzeSyncJob(service BronzeSyncer, logger *slog.Logger, metrics *jobmetrics.Metrics) *BronzeSyncJob {
	return &BronzeSyncJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the bronze sync job.
func (j *BronzeSyncJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("bronze sync: dependencies not configured")
	}
	var payload BronzeSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskBronzeSync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	accounts, err := j.Service.SyncAccounts(ctx, payload.FullRefresh)
	if err != nil {
		resultErr = err
		j.log().Error("sync accounts", slog.Any("error", err))
		return resultErr
	}
	ledger, err := j.Service.SyncLedger(ctx, payload.Since, payload.FullRefresh)
	if err != nil {
		resultErr = err
		j.log().Error("sync ledger", slog.Any("error", err))
		return resultErr
	}

	j.log().Info("landed bronze extract",
		slog.Int("accounts", accounts.Accounts), slog.Int("ledger_rows", ledger.LedgerRows),
		slog.Bool("full_refresh", payload.FullRefresh), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *BronzeSyncJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *BronzeSyncJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBronzeSync))
	}
	return slog.Default().With(slog.String("job", TaskBronzeSync))
}

func (j *BronzeSyncJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *BronzeSyncJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
