package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jewelcraft/metalpricing/internal/platform/db"
	"github.com/jewelcraft/metalpricing/internal/platform/httpx"
	"github.com/jewelcraft/metalpricing/internal/pricing"
)

// ErrItemNotFound is returned for unknown item ids.
var ErrItemNotFound = fmt.Errorf("catalog item: %w", httpx.ErrNotFound)

// ErrStaleSnapshot reports that the item was already priced from a newer snapshot.
var ErrStaleSnapshot = errors.New("catalog: item priced from a newer rate snapshot")

const itemColumns = `id, sku, is_active, metal, purity, weight_value, weight_unit,
	wastage, making_charges, metal_rate, metal_cost, calculated_price,
	last_price_update, rate_snapshot_id, price`

// Repository persists catalog pricing fields in catalog_items.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindActiveItems returns every active item ordered by id.
func (r *Repository) FindActiveItems(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: find active items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get loads one item.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("catalog: get item %d: %w", id, err)
	}
	return item, nil
}

// UpdateItemPricingFields writes the calculator output onto the item. Items
// already priced from a newer snapshot are left alone and ErrStaleSnapshot
// is returned.
func (r *Repository) UpdateItemPricingFields(ctx context.Context, itemID int64, b pricing.Breakdown, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE catalog_items SET
			metal_rate = $2, metal_cost = $3, calculated_price = $4, price = $4,
			last_price_update = $5, rate_snapshot_id = $6
		WHERE id = $1 AND (rate_snapshot_id IS NULL OR rate_snapshot_id <= $6)`,
		itemID, b.MetalRate, b.MetalCost, b.TotalPrice, at, b.SnapshotID)
	if err != nil {
		return fmt.Errorf("catalog: update pricing fields %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, itemID); err != nil {
			return err
		}
		return ErrStaleSnapshot
	}
	return nil
}

// UpdatePricingAttributes stores new attributes together with their freshly
// calculated price in one transaction.
func (r *Repository) UpdatePricingAttributes(ctx context.Context, itemID int64, attrs Attributes, b pricing.Breakdown, at time.Time) (Item, error) {
	var item Item
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE catalog_items SET
				metal = $2, purity = $3, weight_value = $4, weight_unit = $5,
				wastage = $6, making_charges = $7,
				metal_rate = $8, metal_cost = $9, calculated_price = $10, price = $10,
				last_price_update = $11, rate_snapshot_id = $12
			WHERE id = $1`,
			itemID, string(b.Metal), attrs.Purity, attrs.Weight, attrs.Unit,
			attrs.Wastage, attrs.MakingCharges,
			b.MetalRate, b.MetalCost, b.TotalPrice, at, b.SnapshotID)
		if err != nil {
			return fmt.Errorf("catalog: update attributes %d: %w", itemID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrItemNotFound
		}
		item, err = scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = $1`, itemID))
		return err
	})
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(
		&item.ID, &item.SKU, &item.IsActive, &item.Metal, &item.Purity,
		&item.Weight.Value, &item.Weight.Unit,
		&item.Pricing.Wastage, &item.Pricing.MakingCharges, &item.Pricing.MetalRate,
		&item.Pricing.MetalCost, &item.Pricing.CalculatedPrice,
		&item.Pricing.LastPriceUpdate, &item.Pricing.RateSnapshotID, &item.Price,
	)
	return item, err
}
