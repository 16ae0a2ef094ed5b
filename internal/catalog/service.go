package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jewelcraft/metalpricing/internal/platform/httpx"
	"github.com/jewelcraft/metalpricing/internal/pricing"
	"github.com/jewelcraft/metalpricing/internal/shared"
)

// Store is the persistence surface used by Service.
type Store interface {
	Get(ctx context.Context, id int64) (Item, error)
	UpdatePricingAttributes(ctx context.Context, itemID int64, attrs Attributes, b pricing.Breakdown, at time.Time) (Item, error)
}

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service edits item pricing attributes and reprices the item on the spot.
type Service struct {
	store    Store
	quotes   *pricing.Quoter
	options  pricing.OptionsProvider
	audit    AuditRecorder
	validate *validator.Validate
	logger   *slog.Logger
	clock    func() time.Time
}

// NewService wires the catalog pricing service. options and audit may be nil.
func NewService(store Store, quotes *pricing.Quoter, options pricing.OptionsProvider, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		quotes:   quotes,
		options:  options,
		audit:    audit,
		validate: httpx.NewValidator(),
		logger:   logger.With(slog.String("component", "catalog")),
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Item returns one item.
func (s *Service) Item(ctx context.Context, id int64) (Item, error) {
	return s.store.Get(ctx, id)
}

// SetPricingAttributes validates attrs against the vocabulary, prices them
// against the active snapshot and persists both. Nothing is written when
// pricing fails.
func (s *Service) SetPricingAttributes(ctx context.Context, id int64, attrs Attributes, actor string) (Item, error) {
	if err := httpx.ValidateStruct(s.validate, attrs); err != nil {
		return Item{}, err
	}
	vocab := pricing.ResolveOptions(ctx, s.options, s.logger)
	if !vocab.Allows(attrs.Metal, attrs.Purity) {
		return Item{}, &httpx.ValidationError{Fields: map[string]string{
			"purity": fmt.Sprintf("purity %q is not allowed for metal %q", attrs.Purity, attrs.Metal),
		}}
	}
	breakdown, err := s.quotes.Quote(ctx, attrs.PricingInput())
	if err != nil {
		return Item{}, err
	}
	item, err := s.store.UpdatePricingAttributes(ctx, id, attrs, breakdown, s.clock())
	if err != nil {
		return Item{}, err
	}
	s.logger.Info("item repriced",
		slog.Int64("item_id", item.ID),
		slog.String("sku", item.SKU),
		slog.Float64("price", item.Price),
		slog.Int64("snapshot_id", breakdown.SnapshotID))

	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   "catalog.pricing.update",
			Entity:   "catalog_items",
			EntityID: strconv.FormatInt(item.ID, 10),
			Meta: map[string]any{
				"metal":          attrs.Metal,
				"purity":         attrs.Purity,
				"weight":         attrs.Weight,
				"wastage":        attrs.Wastage,
				"making_charges": attrs.MakingCharges,
				"price":          breakdown.TotalPrice,
			},
		})
		if err != nil {
			s.logger.Warn("record catalog audit", slog.Any("error", err))
		}
	}
	return item, nil
}
