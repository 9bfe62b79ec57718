package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerlake/ledgerlake/internal/silver"
	"github.com/ledgerlake/ledgerlake/jobs"
)

// TaskQueue abstracts the enqueue operations the commands rely on, so tests
// can run without a live Redis.
type TaskQueue interface {
	EnqueueBronzeSync(ctx context.Context, payload jobs.BronzeSyncPayload) (*asynq.TaskInfo, error)
	EnqueueSilverRefresh(ctx context.Context, payload jobs.SilverRefreshPayload) (*asynq.TaskInfo, error)
	EnqueueBalanceRecompute(ctx context.Context, payload jobs.BalanceRecomputePayload) (*asynq.TaskInfo, error)
}

// QueueInspector reports queue state for the status command.
type QueueInspector interface {
	InspectQueue(ctx context.Context) (QueueStats, error)
}

// PipelineCLI drives the pipeline trigger commands.
type PipelineCLI struct {
	queue     TaskQueue
	inspector QueueInspector
}

// NewPipelineCLI constructs the command surface around a task queue.
func NewPipelineCLI(queue TaskQueue, inspector QueueInspector) *PipelineCLI {
	return &PipelineCLI{queue: queue, inspector: inspector}
}

// SyncOptions configures the bronze sync command.
type SyncOptions struct {
	FullRefresh bool
	Since       string
	JSONOutput  bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// TaskSummary reports an enqueued task back to the operator.
type TaskSummary struct {
	Task   string `json:"task"`
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

// SyncCommand enqueues a bronze landing run.
func (c *PipelineCLI) SyncCommand(ctx context.Context, opts SyncOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	payload := jobs.BronzeSyncPayload{FullRefresh: opts.FullRefresh}
	if since := strings.TrimSpace(opts.Since); since != "" {
		parsed, err := time.Parse("2006-01-02", since)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "sync: invalid --since %q (expected YYYY-MM-DD)\n", opts.Since)
			return 1
		}
		payload.Since = parsed.UTC()
	}
	info, err := c.queue.EnqueueBronzeSync(ctx, payload)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "sync: enqueue: %v\n", err)
		return 1
	}
	return emitTask(opts.Stdout, opts.JSONOutput, jobs.TaskBronzeSync, info)
}

// RefreshOptions configures the silver refresh command.
type RefreshOptions struct {
	FullRefresh bool
	Tables      []string
	JSONOutput  bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// RefreshCommand enqueues a silver load run.
func (c *PipelineCLI) RefreshCommand(ctx context.Context, opts RefreshOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	tables := make([]string, 0, len(opts.Tables))
	for _, table := range opts.Tables {
		table = strings.ToLower(strings.TrimSpace(table))
		if table == "" {
			continue
		}
		if !slices.Contains(silver.StageOrder, table) {
			fmt.Fprintf(opts.Stderr, "refresh: unknown table %q (expected one of %s)\n",
				table, strings.Join(silver.StageOrder, ", "))
			return 1
		}
		tables = append(tables, table)
	}
	info, err := c.queue.EnqueueSilverRefresh(ctx, jobs.SilverRefreshPayload{
		FullRefresh: opts.FullRefresh,
		Tables:      tables,
	})
	if err != nil {
		fmt.Fprintf(opts.Stderr, "refresh: enqueue: %v\n", err)
		return 1
	}
	return emitTask(opts.Stdout, opts.JSONOutput, jobs.TaskSilverRefresh, info)
}

// RecomputeOptions configures the balance recompute command. A zero PeriodID
// requests a full rebuild.
type RecomputeOptions struct {
	PeriodID   int64
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// RecomputeCommand enqueues a balance recompute.
func (c *PipelineCLI) RecomputeCommand(ctx context.Context, opts RecomputeOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.PeriodID < 0 {
		fmt.Fprintln(opts.Stderr, "recompute: --period must not be negative")
		return 1
	}
	info, err := c.queue.EnqueueBalanceRecompute(ctx, jobs.BalanceRecomputePayload{PeriodID: opts.PeriodID})
	if err != nil {
		fmt.Fprintf(opts.Stderr, "recompute: enqueue: %v\n", err)
		return 1
	}
	return emitTask(opts.Stdout, opts.JSONOutput, jobs.TaskBalanceRecompute, info)
}

// StatusOptions configures the queue status command.
type StatusOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// StatusCommand prints queue depth counters.
func (c *PipelineCLI) StatusCommand(ctx context.Context, opts StatusOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if c.inspector == nil {
		fmt.Fprintln(opts.Stderr, "status: inspector not configured")
		return 1
	}
	stats, err := c.inspector.InspectQueue(ctx)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "status: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
			fmt.Fprintf(opts.Stderr, "status: encode: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(opts.Stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	return 0
}

func emitTask(stdout io.Writer, jsonOutput bool, taskType string, info *asynq.TaskInfo) int {
	summary := TaskSummary{Task: taskType}
	if info != nil {
		summary.TaskID = info.ID
		summary.Queue = info.Queue
	}
	if jsonOutput {
		if err := json.NewEncoder(stdout).Encode(summary); err != nil {
			return 1
		}
		return 0
	}
	fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", summary.Task, summary.TaskID, summary.Queue)
	return 0
}
