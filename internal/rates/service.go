package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jewelcraft/metalpricing/internal/platform/httpx"
	"github.com/jewelcraft/metalpricing/internal/shared"
)

const idempotencyModule = "pricing.update_rates"

// Messages returned to the administrator after an update.
const (
	MessagePropagating = "Rates updated. Catalog prices are being updated in the background."
	MessageNotQueued   = "Rates updated, but the background price update could not be scheduled. Run recalculate-all-prices."
)

// SyncDispatcher schedules catalog repricing for a freshly activated snapshot.
type SyncDispatcher interface {
	DispatchPricingSync(ctx context.Context, snapshot Snapshot) (string, error)
}

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyGuard rejects replayed update requests.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// UpdateRatesRequest is the admin input for a rate change.
type UpdateRatesRequest struct {
	GoldRate24K         *float64 `json:"goldRate24K" validate:"required,gt=0"`
	SilverRate999       *float64 `json:"silverRate999" validate:"required,gt=0"`
	DiamondRatePerCarat *float64 `json:"diamondRatePerCarat" validate:"required,gt=0"`
	PlatinumRate950     *float64 `json:"platinumRate950,omitempty"`
	Notes               string   `json:"notes,omitempty" validate:"max=500"`
}

// UpdateResult reports the committed snapshot and propagation state.
type UpdateResult struct {
	Snapshot             Snapshot `json:"rates"`
	SyncTaskID           string   `json:"syncTaskId,omitempty"`
	PropagationScheduled bool     `json:"propagationScheduled"`
	Message              string   `json:"message"`
}

// Service runs the rate update workflow and serves rate reads.
type Service struct {
	repo        Repository
	cache       *Cache
	dispatcher  SyncDispatcher
	audit       AuditRecorder
	idempotency IdempotencyGuard
	validate    *validator.Validate
	logger      *slog.Logger
	clock       func() time.Time
}

// NewService wires the workflow. cache, audit and idempotency may be nil.
func NewService(repo Repository, cache *Cache, dispatcher SyncDispatcher, audit AuditRecorder, idempotency IdempotencyGuard, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		cache:       cache,
		dispatcher:  dispatcher,
		audit:       audit,
		idempotency: idempotency,
		validate:    httpx.NewValidator(),
		logger:      logger.With(slog.String("component", "rates")),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Active returns the active snapshot; found is false when rates were never set.
func (s *Service) Active(ctx context.Context) (Snapshot, bool, error) {
	return s.cache.Active(ctx, s.repo.GetActive)
}

// History returns snapshots newest first.
func (s *Service) History(ctx context.Context, page, limit int) (HistoryPage, error) {
	page, limit = shared.NormalizePage(page, limit)
	items, total, err := s.repo.History(ctx, page, limit)
	if err != nil {
		return HistoryPage{}, err
	}
	return HistoryPage{Items: items, Pagination: shared.NewPagination(page, limit, total)}, nil
}

// UpdateRates validates input, derives purity rates, switches the active
// snapshot and schedules catalog repricing without waiting for it.
func (s *Service) UpdateRates(ctx context.Context, req UpdateRatesRequest, actor, idempotencyKey string) (UpdateResult, error) {
	if err := httpx.ValidateStruct(s.validate, req); err != nil {
		return UpdateResult{}, err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return UpdateResult{}, fmt.Errorf("%w: %v", httpx.ErrDuplicate, err)
			}
			return UpdateResult{}, fmt.Errorf("rates: idempotency check: %w", err)
		}
	}

	snapshot, err := NewSnapshot(req.baseRates(), actor, req.Notes, s.clock())
	if err != nil {
		s.releaseKey(ctx, idempotencyKey)
		return UpdateResult{}, &httpx.ValidationError{Fields: map[string]string{"rates": err.Error()}}
	}

	saved, err := s.repo.SwitchActive(ctx, snapshot)
	if err != nil {
		s.releaseKey(ctx, idempotencyKey)
		return UpdateResult{}, fmt.Errorf("rates: switch active snapshot: %w", err)
	}
	logger := s.logger.With(slog.Int64("snapshot_id", saved.ID), slog.String("updated_by", actor))
	logger.Info("metal rates updated",
		slog.Float64("gold_24k", saved.GoldRate24K),
		slog.Float64("silver_999", saved.SilverRate999),
		slog.Float64("diamond_ct", saved.DiamondRatePerCarat),
		slog.Float64("platinum_950", saved.PlatinumRate950))

	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn("invalidate rates cache", slog.Any("error", err))
	}
	s.recordAudit(ctx, logger, saved)

	result := UpdateResult{Snapshot: saved, Message: MessageNotQueued}
	if s.dispatcher == nil {
		logger.Warn("no pricing sync dispatcher configured")
		return result, nil
	}
	taskID, err := s.dispatcher.DispatchPricingSync(ctx, saved)
	if err != nil {
		logger.Error("schedule pricing sync", slog.Any("error", err))
		return result, nil
	}
	result.SyncTaskID = taskID
	result.PropagationScheduled = true
	result.Message = MessagePropagating
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, logger *slog.Logger, snap Snapshot) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    snap.UpdatedBy,
		Action:   "rates.update",
		Entity:   "metal_rates",
		EntityID: strconv.FormatInt(snap.ID, 10),
		Meta: map[string]any{
			"gold_rate_24k":          snap.GoldRate24K,
			"silver_rate_999":        snap.SilverRate999,
			"diamond_rate_per_carat": snap.DiamondRatePerCarat,
			"platinum_rate_950":      snap.PlatinumRate950,
		},
		At: snap.CreatedAt,
	})
	if err != nil {
		logger.Warn("record rates audit", slog.Any("error", err))
	}
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Delete(ctx, key, idempotencyModule); err != nil {
		s.logger.Warn("release idempotency key", slog.Any("error", err))
	}
}

func (r UpdateRatesRequest) baseRates() BaseRates {
	base := BaseRates{
		GoldRate24K:         *r.GoldRate24K,
		SilverRate999:       *r.SilverRate999,
		DiamondRatePerCarat: *r.DiamondRatePerCarat,
	}
	if r.PlatinumRate950 != nil && *r.PlatinumRate950 > 0 {
		base.PlatinumRate950 = *r.PlatinumRate950
	}
	return base
}
