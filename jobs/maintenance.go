package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/jewelcraft/metalpricing/internal/jobs"
)

// TaskIdempotencyCleanup purges expired update-rates idempotency keys.
const TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"

// KeyCleaner removes idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob handles TaskIdempotencyCleanup.
type IdempotencyCleanupJob struct {
	Store     KeyCleaner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle deletes expired keys.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	retention := j.Retention
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	err := j.Store.Cleanup(ctx, retention)
	if err != nil && j.Logger != nil {
		j.Logger.Error("idempotency cleanup", slog.String("job", TaskIdempotencyCleanup), slog.Any("error", err))
	}
	return tracker.End(err)
}

// ScheduledIdempotencyCleanup is the daily cron entry for key cleanup.
func ScheduledIdempotencyCleanup() CronRegistration {
	return CronRegistration{
		Spec:    "15 4 * * *",
		Task:    asynq.NewTask(TaskIdempotencyCleanup, nil),
		Options: []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(2)},
	}
}
