// Package pricingsync reprices the active catalog after a rate change.
package pricingsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jewelcraft/metalpricing/internal/catalog"
	"github.com/jewelcraft/metalpricing/internal/pricing"
	"github.com/jewelcraft/metalpricing/internal/rates"
)

// Triggers recorded on each run.
const (
	TriggerRateUpdate = "rate_update"
	TriggerManual     = "manual"
	TriggerSchedule   = "schedule"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusAborted   = "aborted"
)

// DefaultConcurrency bounds parallel item updates when none is configured.
const DefaultConcurrency = 8

// Catalog is the collaborator the sync reads from and writes to.
type Catalog interface {
	FindActiveItems(ctx context.Context) ([]catalog.Item, error)
	UpdateItemPricingFields(ctx context.Context, itemID int64, b pricing.Breakdown, at time.Time) error
}

// Metrics receives per-run item counts.
type Metrics interface {
	AddSyncItems(trigger string, updated, failed int)
}

// Failure identifies an item that could not be repriced.
type Failure struct {
	ItemID int64  `json:"itemId"`
	SKU    string `json:"sku"`
	Reason string `json:"reason"`
}

// Result summarises one sync run. Errors > 0 is a partial failure.
type Result struct {
	RunID      string    `json:"runId"`
	SnapshotID int64     `json:"snapshotId"`
	Trigger    string    `json:"trigger"`
	Status     string    `json:"status"`
	Updated    int       `json:"updated"`
	Errors     int       `json:"errors"`
	Skipped    int       `json:"skipped"`
	Failures   []Failure `json:"failures,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// Options tunes a Syncer.
type Options struct {
	Concurrency int
	Calculator  *pricing.Calculator
	Metrics     Metrics
	Logger      *slog.Logger
}

// Syncer applies a snapshot to every active catalog item.
type Syncer struct {
	catalog     Catalog
	calculator  *pricing.Calculator
	concurrency int
	metrics     Metrics
	logger      *slog.Logger
	clock       func() time.Time
}

// NewSyncer constructs a Syncer.
func NewSyncer(c Catalog, opts Options) *Syncer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Calculator == nil {
		opts.Calculator = pricing.DefaultCalculator
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Syncer{
		catalog:     c,
		calculator:  opts.Calculator,
		concurrency: opts.Concurrency,
		metrics:     opts.Metrics,
		logger:      opts.Logger.With(slog.String("component", "pricingsync")),
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

// Sync reprices every active item against snap. Per-item failures are
// tallied and never abort the run; the returned error covers only loading
// the catalog. When ctx ends mid-run the remaining items are reported as
// failures and the run is marked aborted.
func (s *Syncer) Sync(ctx context.Context, snap rates.Snapshot, trigger string) (Result, error) {
	result := Result{
		RunID:      uuid.NewString(),
		SnapshotID: snap.ID,
		Trigger:    trigger,
		Status:     StatusRunning,
		StartedAt:  s.clock(),
	}
	logger := s.logger.With(
		slog.String("run_id", result.RunID),
		slog.Int64("snapshot_id", snap.ID),
		slog.String("trigger", trigger))

	items, err := s.catalog.FindActiveItems(ctx)
	if err != nil {
		return result, fmt.Errorf("pricingsync: load catalog: %w", err)
	}
	logger.Info("price sync started", slog.Int("items", len(items)))

	var mu sync.Mutex
	record := func(item catalog.Item, outcome error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case outcome == nil:
			result.Updated++
		case errors.Is(outcome, catalog.ErrStaleSnapshot):
			result.Skipped++
		default:
			result.Errors++
			result.Failures = append(result.Failures, Failure{ItemID: item.ID, SKU: item.SKU, Reason: outcome.Error()})
			logger.Warn("item not repriced",
				slog.Int64("item_id", item.ID),
				slog.String("sku", item.SKU),
				slog.Any("error", outcome))
		}
	}

	at := s.clock()
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			record(item, fmt.Errorf("sync aborted: %w", err))
			continue
		}
		item := item
		g.Go(func() error {
			record(item, s.repriceItem(ctx, item, &snap, at))
			return nil
		})
	}
	_ = g.Wait()

	result.FinishedAt = s.clock()
	switch {
	case ctx.Err() != nil:
		result.Status = StatusAborted
	case result.Errors > 0:
		result.Status = StatusPartial
	default:
		result.Status = StatusCompleted
	}
	if s.metrics != nil {
		s.metrics.AddSyncItems(trigger, result.Updated, result.Errors)
	}
	logger.Info("price sync finished",
		slog.String("status", result.Status),
		slog.Int("updated", result.Updated),
		slog.Int("errors", result.Errors),
		slog.Int("skipped", result.Skipped),
		slog.Duration("took", result.FinishedAt.Sub(result.StartedAt)))
	return result, nil
}

func (s *Syncer) repriceItem(ctx context.Context, item catalog.Item, snap *rates.Snapshot, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sync aborted: %w", err)
	}
	breakdown, err := s.calculator.Calculate(item.PricingInput(), snap)
	if err != nil {
		return err
	}
	return s.catalog.UpdateItemPricingFields(ctx, item.ID, breakdown, at)
}
