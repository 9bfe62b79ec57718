// Package jobs holds the background task definitions and the Asynq worker
// runtime that executes the pipeline on a schedule.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBronzeSync lands Holded API data into the bronze schema.
	TaskBronzeSync = "bronze:sync"
	// TaskSilverRefresh runs the silver-layer loaders.
	TaskSilverRefresh = "silver:refresh"
	// TaskBalanceRecompute rebuilds the account balance table.
	TaskBalanceRecompute = "balance:recompute"
)

// BronzeSyncPayload configures one landing run.
type BronzeSyncPayload struct {
	FullRefresh bool      `json:"full_refresh"`
	Since       time.Time `json:"since,omitzero"`
}

// SilverRefreshPayload configures one silver load run.
type SilverRefreshPayload struct {
	FullRefresh bool     `json:"full_refresh"`
	Tables      []string `json:"tables,omitempty"`
}

// BalanceRecomputePayload configures one balance recompute. A zero PeriodID
// means a full rebuild; otherwise the recompute starts at that period.
type BalanceRecomputePayload struct {
	PeriodID int64 `json:"period_id"`
}

// NewBronzeSyncTask constructs an Asynq task for the bronze landing.
func NewBronzeSyncTask(payload BronzeSyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBronzeSync, body, asynq.Queue(QueueDefault)), nil
}

// NewSilverRefreshTask constructs an Asynq task for the silver loaders.
func NewSilverRefreshTask(payload SilverRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSilverRefresh, body, asynq.Queue(QueueDefault)), nil
}

// NewBalanceRecomputeTask constructs an Asynq task for balance recomputation.
func NewBalanceRecomputeTask(payload BalanceRecomputePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceRecompute, body, asynq.Queue(QueueDefault)), nil
}
