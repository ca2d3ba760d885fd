package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity scans posted entries and balances for drift.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskReportsWarmup pre-populates report caches for open periods.
	TaskReportsWarmup = "reports:warmup"
)

// LedgerIntegrityPayload scopes an integrity scan. A zero TenantID scans
// every tenant.
type LedgerIntegrityPayload struct {
	TenantID int64 `json:"tenant_id"`
}

// ReportsWarmupPayload scopes a cache warmup run.
type ReportsWarmupPayload struct {
	TenantID int64 `json:"tenant_id"`
}

// NewLedgerIntegrityTask builds an integrity scan task.
func NewLedgerIntegrityTask(payload LedgerIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// NewReportsWarmupTask builds a report warmup task.
func NewReportsWarmupTask(payload ReportsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}
