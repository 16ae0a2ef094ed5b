package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/jewelcraft/metalpricing/internal/pricingsync"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPricingSync reprices the active catalog.
	TaskPricingSync = "pricing:sync"
)

// PricingSyncPayload describes which snapshot a sync was requested for. A
// zero SnapshotID means "whatever is active when the task runs".
type PricingSyncPayload struct {
	SnapshotID  int64  `json:"snapshot_id,omitempty"`
	Trigger     string `json:"trigger"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// NewPricingSyncTask constructs an Asynq task.
func NewPricingSyncTask(payload PricingSyncPayload) (*asynq.Task, error) {
	if payload.Trigger == "" {
		payload.Trigger = pricingsync.TriggerRateUpdate
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPricingSync, data), nil
}

// pricingSyncTaskID deduplicates syncs queued for the same snapshot.
func pricingSyncTaskID(snapshotID int64) string {
	return fmt.Sprintf("pricing-sync-%d", snapshotID)
}
