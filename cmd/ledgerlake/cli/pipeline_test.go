package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlake/ledgerlake/jobs"
)

type stubQueue struct {
	sync      *jobs.BronzeSyncPayload
	refresh   *jobs.SilverRefreshPayload
	recompute *jobs.BalanceRecomputePayload
	err       error
}

func (s *stubQueue) EnqueueBronzeSync(ctx context.Context, payload jobs.BronzeSyncPayload) (*asynq.TaskInfo, error) {
	s.sync = &payload
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueDefault}, s.err
}

func (s *stubQueue) EnqueueSilverRefresh(ctx context.Context, payload jobs.SilverRefreshPayload) (*asynq.TaskInfo, error) {
	s.refresh = &payload
	return &asynq.TaskInfo{ID: "task-2", Queue: jobs.QueueDefault}, s.err
}

func (s *stubQueue) EnqueueBalanceRecompute(ctx context.Context, payload jobs.BalanceRecomputePayload) (*asynq.TaskInfo, error) {
	s.recompute = &payload
	return &asynq.TaskInfo{ID: "task-3", Queue: jobs.QueueDefault}, s.err
}

type stubInspector struct {
	stats QueueStats
	err   error
}

func (s *stubInspector) InspectQueue(ctx context.Context) (QueueStats, error) {
	return s.stats, s.err
}

func TestSyncCommandParsesSince(t *testing.T) {
	queue := &stubQueue{}
	cli := NewPipelineCLI(queue, nil)
	var stdout, stderr bytes.Buffer

	code := cli.SyncCommand(context.Background(), SyncOptions{
		FullRefresh: true,
		Since:       "2024-03-01",
		JSONOutput:  true,
		Stdout:      &stdout,
		Stderr:      &stderr,
	})
	require.Zero(t, code, stderr.String())
	require.NotNil(t, queue.sync)
	require.True(t, queue.sync.FullRefresh)
	require.Equal(t, "2024-03-01", queue.sync.Since.Format("2006-01-02"))

	var summary TaskSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.Equal(t, jobs.TaskBronzeSync, summary.Task)
	require.Equal(t, "task-1", summary.TaskID)
}

func TestSyncCommandRejectsBadSince(t *testing.T) {
	cli := NewPipelineCLI(&stubQueue{}, nil)
	var stdout, stderr bytes.Buffer

	code := cli.SyncCommand(context.Background(), SyncOptions{
		Since:  "March 1st",
		Stdout: &stdout,
		Stderr: &stderr,
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "invalid --since")
}

func TestRefreshCommandValidatesTables(t *testing.T) {
	queue := &stubQueue{}
	cli := NewPipelineCLI(queue, nil)
	var stdout, stderr bytes.Buffer

	code := cli.RefreshCommand(context.Background(), RefreshOptions{
		Tables: []string{"Accounts", "balances"},
		Stdout: &stdout,
		Stderr: &stderr,
	})
	require.Zero(t, code, stderr.String())
	require.Equal(t, []string{"accounts", "balances"}, queue.refresh.Tables)

	code = cli.RefreshCommand(context.Background(), RefreshOptions{
		Tables: []string{"gold"},
		Stdout: &stdout,
		Stderr: &stderr,
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), `unknown table "gold"`)
}

func TestRecomputeCommand(t *testing.T) {
	queue := &stubQueue{}
	cli := NewPipelineCLI(queue, nil)
	var stdout, stderr bytes.Buffer

	code := cli.RecomputeCommand(context.Background(), RecomputeOptions{
		PeriodID:   202403,
		JSONOutput: true,
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	require.Zero(t, code, stderr.String())
	require.Equal(t, int64(202403), queue.recompute.PeriodID)

	code = cli.RecomputeCommand(context.Background(), RecomputeOptions{
		PeriodID: -5,
		Stdout:   &stdout,
		Stderr:   &stderr,
	})
	require.Equal(t, 1, code)
	require.Equal(t, int64(202403), queue.recompute.PeriodID, "invalid input must not enqueue")
}

func TestRecomputeCommandEnqueueFailure(t *testing.T) {
	queue := &stubQueue{err: errors.New("redis down")}
	cli := NewPipelineCLI(queue, nil)
	var stdout, stderr bytes.Buffer

	code := cli.RecomputeCommand(context.Background(), RecomputeOptions{
		Stdout: &stdout,
		Stderr: &stderr,
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "redis down")
}

func TestStatusCommandJSON(t *testing.T) {
	inspector := &stubInspector{stats: QueueStats{Queue: "default", Pending: 2, Retry: 1}}
	cli := NewPipelineCLI(&stubQueue{}, inspector)
	var stdout, stderr bytes.Buffer

	code := cli.StatusCommand(context.Background(), StatusOptions{
		JSONOutput: true,
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	require.Zero(t, code, stderr.String())

	var stats QueueStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &stats))
	require.Equal(t, 2, stats.Pending)
	require.Equal(t, 1, stats.Retry)
}
