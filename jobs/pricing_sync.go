package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/jewelcraft/metalpricing/internal/jobs"
	"github.com/jewelcraft/metalpricing/internal/pricingsync"
	"github.com/jewelcraft/metalpricing/internal/rates"
)

// SyncRunner executes price syncs.
type SyncRunner interface {
	Run(ctx context.Context, snap rates.Snapshot, trigger string) (pricingsync.Result, error)
	RunActive(ctx context.Context, trigger string) (pricingsync.Result, error)
}

// ActiveRates yields the currently active snapshot.
type ActiveRates interface {
	Active(ctx context.Context) (rates.Snapshot, bool, error)
}

// PricingSyncJob handles TaskPricingSync.
type PricingSyncJob struct {
	Runner  SyncRunner
	Rates   ActiveRates
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewPricingSyncJob wires dependencies for the sync handler.
func NewPricingSyncJob(runner SyncRunner, active ActiveRates, logger *slog.Logger, metrics *jobmetrics.Metrics) *PricingSyncJob {
	return &PricingSyncJob{Runner: runner, Rates: active, Logger: logger, Metrics: metrics}
}

// Handle processes pricing sync tasks. Item-level failures complete the task;
// only storage failures are retried.
func (j *PricingSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Runner == nil {
		return errors.New("pricing sync: handler not configured")
	}
	var payload PricingSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("pricing sync: decode payload: %w", asynq.SkipRetry)
	}
	if payload.Trigger == "" {
		payload.Trigger = pricingsync.TriggerSchedule
	}

	tracker := j.Metrics.Track(TaskPricingSync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("job", TaskPricingSync),
		slog.String("trigger", payload.Trigger),
		slog.Int64("snapshot_id", payload.SnapshotID))

	var (
		result pricingsync.Result
		err    error
	)
	if payload.SnapshotID == 0 {
		result, err = j.Runner.RunActive(ctx, payload.Trigger)
	} else {
		snap, proceed, loadErr := j.requestedSnapshot(ctx, payload.SnapshotID)
		if loadErr != nil {
			resultErr = loadErr
			logger.Error("load active rates", slog.Any("error", loadErr))
			return resultErr
		}
		if !proceed {
			logger.Info("snapshot superseded, skipping sync")
			return nil
		}
		result, err = j.Runner.Run(ctx, snap, payload.Trigger)
	}
	if err != nil {
		resultErr = err
		logger.Error("pricing sync failed", slog.Any("error", err))
		return resultErr
	}
	logger.Info("pricing sync complete",
		slog.String("run_id", result.RunID),
		slog.String("status", result.Status),
		slog.Int("updated", result.Updated),
		slog.Int("errors", result.Errors))
	return nil
}

// requestedSnapshot returns the active snapshot when it is still the one the
// task was queued for.
func (j *PricingSyncJob) requestedSnapshot(ctx context.Context, snapshotID int64) (rates.Snapshot, bool, error) {
	if j.Rates == nil {
		return rates.Snapshot{}, false, errors.New("pricing sync: rates source not configured")
	}
	snap, found, err := j.Rates.Active(ctx)
	if err != nil {
		return rates.Snapshot{}, false, err
	}
	if !found || snap.ID != snapshotID {
		return rates.Snapshot{}, false, nil
	}
	return snap, true, nil
}

func (j *PricingSyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
