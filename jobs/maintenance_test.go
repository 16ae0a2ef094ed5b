package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	olderThan time.Duration
	err       error
}

func (f *fakeCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	f.olderThan = olderThan
	return f.err
}

func TestIdempotencyCleanupJob(t *testing.T) {
	cleaner := &fakeCleaner{}
	job := &IdempotencyCleanupJob{Store: cleaner}
	reg := ScheduledIdempotencyCleanup()

	require.NoError(t, job.Handle(context.Background(), reg.Task))
	require.Equal(t, 72*time.Hour, cleaner.olderThan)

	cleaner.err = errors.New("db down")
	job.Retention = time.Hour
	require.ErrorIs(t, job.Handle(context.Background(), reg.Task), cleaner.err)
	require.Equal(t, time.Hour, cleaner.olderThan)
}
