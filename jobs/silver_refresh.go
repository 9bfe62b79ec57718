package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ledgerlake/ledgerlake/internal/jobs"
	"github.com/ledgerlake/ledgerlake/internal/silver"
)

// SilverRunner describes the stage runner the job drives.
type SilverRunner interface {
	Run(ctx context.Context, opts silver.Options) (silver.Report, error)
}

// SilverRefreshJob rebuilds the silver layer out of the landed bronze rows.
type SilverRefreshJob struct {
	Runner  SilverRunner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSilverRefreshJob constructs the job handler.
func NewSilverRefreshJob(runner SilverRunner, logger *slog.Logger, metrics *jobmetrics.Metrics) *SilverRefreshJob {
	return &SilverRefreshJob{
		Runner:  runner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the silver refresh job.
func (j *SilverRefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Runner == nil {
		return errors.New("silver refresh: dependencies not configured")
	}
	var payload SilverRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskSilverRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	report, err := j.Runner.Run(ctx, silver.Options{FullRefresh: payload.FullRefresh, Tables: payload.Tables})
	if err != nil {
		resultErr = err
		j.log().Error("silver refresh", slog.Any("error", err))
		return resultErr
	}
	if report.Accounts != nil {
		j.metrics().AddSkipped(silver.StageAccounts, report.Accounts.Skipped)
	}
	if report.Lines != nil {
		j.metrics().AddSkipped(silver.StageLines, report.Lines.Skipped)
	}

	j.log().Info("refreshed silver layer",
		slog.Bool("full_refresh", payload.FullRefresh), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *SilverRefreshJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *SilverRefreshJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSilverRefresh))
	}
	return slog.Default().With(slog.String("job", TaskSilverRefresh))
}

func (j *SilverRefreshJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *SilverRefreshJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
