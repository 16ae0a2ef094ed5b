package pricingsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jewelcraft/metalpricing/internal/catalog"
	"github.com/jewelcraft/metalpricing/internal/pricing"
	"github.com/jewelcraft/metalpricing/internal/rates"
)

type fakeCatalog struct {
	mu       sync.Mutex
	items    map[int64]catalog.Item
	loadErr  error
	writeErr map[int64]error
	writes   int
}

func newFakeCatalog(items ...catalog.Item) *fakeCatalog {
	c := &fakeCatalog{items: map[int64]catalog.Item{}, writeErr: map[int64]error{}}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

func (c *fakeCatalog) FindActiveItems(ctx context.Context) ([]catalog.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	var out []catalog.Item
	for id := int64(1); id <= int64(len(c.items))+10; id++ {
		if item, ok := c.items[id]; ok && item.IsActive {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *fakeCatalog) UpdateItemPricingFields(ctx context.Context, itemID int64, b pricing.Breakdown, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeErr[itemID]; err != nil {
		return err
	}
	item := c.items[itemID]
	if item.Pricing.RateSnapshotID != nil && *item.Pricing.RateSnapshotID > b.SnapshotID {
		return catalog.ErrStaleSnapshot
	}
	c.writes++
	item.Pricing.MetalRate = b.MetalRate
	item.Pricing.MetalCost = b.MetalCost
	item.Pricing.CalculatedPrice = b.TotalPrice
	item.Pricing.LastPriceUpdate = &at
	snapID := b.SnapshotID
	item.Pricing.RateSnapshotID = &snapID
	item.Price = b.TotalPrice
	c.items[itemID] = item
	return nil
}

func (c *fakeCatalog) price(id int64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[id].Price
}

type countingMetrics struct {
	updated, failed int
}

func (m *countingMetrics) AddSyncItems(trigger string, updated, failed int) {
	m.updated += updated
	m.failed += failed
}

func goldItem(id int64, sku, purity string, weight, making float64) catalog.Item {
	return catalog.Item{
		ID: id, SKU: sku, IsActive: true,
		Metal: "Gold", Purity: purity,
		Weight:  catalog.Weight{Value: weight, Unit: "grams"},
		Pricing: catalog.Pricing{MakingCharges: making},
		Price:   1,
	}
}

func snapshotAt(t *testing.T, id int64, gold float64) rates.Snapshot {
	t.Helper()
	snap, err := rates.NewSnapshot(rates.BaseRates{GoldRate24K: gold, SilverRate999: 75, DiamondRatePerCarat: 50000}, "owner", "", time.Now())
	require.NoError(t, err)
	snap.ID = id
	return snap
}

func newTestSyncer(c Catalog, metrics Metrics) *Syncer {
	return NewSyncer(c, Options{Concurrency: 2, Metrics: metrics, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func fiveItemCatalog() *fakeCatalog {
	silver := catalog.Item{
		ID: 4, SKU: "ANKLET-4", IsActive: true, Metal: "Silver", Purity: "925 Silver",
		Weight: catalog.Weight{Value: 20, Unit: "grams"}, Price: 1,
	}
	return newFakeCatalog(
		goldItem(1, "RING-1", "22K", 10, 2000),
		goldItem(2, "CHAIN-2", "18K", 5, 0),
		goldItem(3, "PENDANT-3", "10K", 3, 500),
		silver,
		goldItem(5, "COIN-5", "24K", 1, 0),
	)
}

func TestSyncPartialFailureLeavesInvalidItemUntouched(t *testing.T) {
	cat := fiveItemCatalog()
	metrics := &countingMetrics{}
	syncer := newTestSyncer(cat, metrics)

	result, err := syncer.Sync(context.Background(), snapshotAt(t, 1, 6000), TriggerRateUpdate)
	require.NoError(t, err)
	require.Equal(t, 4, result.Updated)
	require.Equal(t, 1, result.Errors)
	require.Equal(t, StatusPartial, result.Status)
	require.Len(t, result.Failures, 1)
	require.Equal(t, int64(3), result.Failures[0].ItemID)
	require.Equal(t, "PENDANT-3", result.Failures[0].SKU)
	require.Contains(t, result.Failures[0].Reason, "10K")

	require.Equal(t, 56960.0, cat.price(1)) // 10 x 5496 + 2000
	require.Equal(t, 22500.0, cat.price(2)) // 5 x 4500
	require.Equal(t, 1.0, cat.price(3))
	require.Equal(t, 1387.6, cat.price(4)) // 20 x 69.38
	require.Equal(t, 6000.0, cat.price(5))

	require.Equal(t, 4, metrics.updated)
	require.Equal(t, 1, metrics.failed)
}

func TestSyncIsIdempotent(t *testing.T) {
	cat := fiveItemCatalog()
	syncer := newTestSyncer(cat, nil)
	snap := snapshotAt(t, 1, 6000)

	_, err := syncer.Sync(context.Background(), snap, TriggerManual)
	require.NoError(t, err)
	before := map[int64]float64{}
	for id := range cat.items {
		before[id] = cat.price(id)
	}

	second, err := syncer.Sync(context.Background(), snap, TriggerManual)
	require.NoError(t, err)
	require.Equal(t, 4, second.Updated)
	for id, price := range before {
		require.Equal(t, price, cat.price(id), "item %d", id)
	}
}

func TestSyncSkipsItemsPricedFromNewerSnapshot(t *testing.T) {
	cat := newFakeCatalog(goldItem(1, "RING-1", "22K", 1, 0), goldItem(2, "RING-2", "22K", 1, 0))
	syncer := newTestSyncer(cat, nil)

	_, err := syncer.Sync(context.Background(), snapshotAt(t, 5, 7000), TriggerRateUpdate)
	require.NoError(t, err)

	stale, err := syncer.Sync(context.Background(), snapshotAt(t, 4, 6000), TriggerRateUpdate)
	require.NoError(t, err)
	require.Equal(t, 0, stale.Updated)
	require.Equal(t, 2, stale.Skipped)
	require.Equal(t, StatusCompleted, stale.Status)
	require.Equal(t, 6412.0, cat.price(1)) // 7000 x 0.916
}

func TestSyncReportsWriteFailures(t *testing.T) {
	cat := newFakeCatalog(goldItem(1, "RING-1", "22K", 1, 0), goldItem(2, "RING-2", "22K", 1, 0))
	cat.writeErr[2] = errors.New("deadlock detected")
	syncer := newTestSyncer(cat, nil)

	result, err := syncer.Sync(context.Background(), snapshotAt(t, 1, 6000), TriggerManual)
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Equal(t, 1, result.Errors)
	require.Equal(t, "RING-2", result.Failures[0].SKU)
}

func TestSyncLoadFailure(t *testing.T) {
	cat := newFakeCatalog()
	cat.loadErr = errors.New("connection refused")
	_, err := newTestSyncer(cat, nil).Sync(context.Background(), snapshotAt(t, 1, 6000), TriggerManual)
	require.ErrorIs(t, err, cat.loadErr)
}

func TestSyncAbortsWhenContextEnds(t *testing.T) {
	cat := fiveItemCatalog()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestSyncer(cat, nil).Sync(ctx, snapshotAt(t, 1, 6000), TriggerSchedule)
	require.NoError(t, err)
	require.Equal(t, StatusAborted, result.Status)
	require.Equal(t, 0, result.Updated)
	require.Equal(t, 5, result.Errors)
	require.Zero(t, cat.writes)
}
