package pricingsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jewelcraft/metalpricing/internal/pricing"
	"github.com/jewelcraft/metalpricing/internal/rates"
)

// ActiveRates yields the currently active snapshot.
type ActiveRates interface {
	Active(ctx context.Context) (rates.Snapshot, bool, error)
}

// Runner wraps a Syncer with a duration guard, status reporting and
// collapsing of concurrent runs.
type Runner struct {
	syncer  *Syncer
	rates   ActiveRates
	status  *StatusStore
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// NewRunner constructs a Runner. status may be nil; timeout <= 0 disables the guard.
func NewRunner(syncer *Syncer, active ActiveRates, status *StatusStore, timeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{syncer: syncer, rates: active, status: status, timeout: timeout, logger: logger}
}

// Run syncs snap under the duration guard and records its status.
func (r *Runner) Run(ctx context.Context, snap rates.Snapshot, trigger string) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.saveStatus(ctx, Result{SnapshotID: snap.ID, Trigger: trigger, Status: StatusRunning, StartedAt: time.Now().UTC()})

	result, err := r.syncer.Sync(ctx, snap, trigger)
	if err != nil {
		result.Status = StatusAborted
		result.FinishedAt = time.Now().UTC()
		r.saveStatus(context.WithoutCancel(ctx), result)
		return result, err
	}
	r.saveStatus(context.WithoutCancel(ctx), result)
	return result, nil
}

// RunActive syncs against the active snapshot. Concurrent callers share one
// run; the run itself outlives a caller that goes away.
func (r *Runner) RunActive(ctx context.Context, trigger string) (Result, error) {
	ch := r.group.DoChan("active", func() (any, error) {
		runCtx := context.WithoutCancel(ctx)
		snap, found, err := r.rates.Active(runCtx)
		if err != nil {
			return Result{}, fmt.Errorf("pricingsync: load active rates: %w", err)
		}
		if !found {
			return Result{}, pricing.ErrNoActiveRates
		}
		return r.Run(runCtx, snap, trigger)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		result, _ := res.Val.(Result)
		if res.Shared {
			r.logger.Info("joined in-flight price sync", slog.String("run_id", result.RunID))
		}
		return result, res.Err
	}
}

// Status returns the latest run.
func (r *Runner) Status(ctx context.Context) (Result, bool, error) {
	return r.status.Last(ctx)
}

// Recent returns recent finished runs.
func (r *Runner) Recent(ctx context.Context, limit int) ([]Result, error) {
	return r.status.Recent(ctx, limit)
}

func (r *Runner) saveStatus(ctx context.Context, result Result) {
	if err := r.status.Save(ctx, result); err != nil {
		r.logger.Warn("save sync status", slog.Any("error", err))
	}
}
