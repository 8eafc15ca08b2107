package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/pos-backoffice/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCycleCloseout builds the summary of a cycle that was just closed.
	TaskCycleCloseout = "cycle:closeout"
	// TaskRateGapScan checks the configured businesses for missing exchange rates.
	TaskRateGapScan = "fx:gap_scan"
	// TaskIdempotencyCleanup prunes expired settlement idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CycleCloseoutPayload identifies the closed cycle.
type CycleCloseoutPayload struct {
	BusinessID int64 `json:"business_id"`
	CycleID    int64 `json:"cycle_id"`
}

// NewCycleCloseoutTask constructs the close-out task. The task id makes repeated enqueues of
// the same cycle collapse into one.
func NewCycleCloseoutTask(payload CycleCloseoutPayload) (*asynq.Task, error) {
	if payload.BusinessID <= 0 || payload.CycleID <= 0 {
		return nil, fmt.Errorf("jobs: closeout requires business and cycle, got %d/%d", payload.BusinessID, payload.CycleID)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCycleCloseout, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID(fmt.Sprintf("closeout:%d:%d", payload.BusinessID, payload.CycleID)),
		asynq.MaxRetry(5),
		asynq.Retention(24*time.Hour),
	), nil
}

// RateGapScanPayload optionally narrows the scan to some businesses.
type RateGapScanPayload struct {
	BusinessIDs []int64 `json:"business_ids,omitempty"`
}

// NewRateGapScanTask constructs the rate gap scan task.
func NewRateGapScanTask(payload RateGapScanPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRateGapScan, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}

// IdempotencyCleanupPayload configures how long keys are retained.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	hours := int(retention / time.Hour)
	if hours <= 0 {
		return nil, fmt.Errorf("jobs: idempotency retention must be at least one hour, got %s", retention)
	}
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: hours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
