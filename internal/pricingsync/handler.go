package pricingsync

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jewelcraft/metalpricing/internal/platform/httpx"
	"github.com/jewelcraft/metalpricing/internal/pricing"
)

// SyncService is the runner surface used by Handler.
type SyncService interface {
	RunActive(ctx context.Context, trigger string) (Result, error)
	Status(ctx context.Context) (Result, bool, error)
	Recent(ctx context.Context, limit int) ([]Result, error)
}

// Handler exposes the operator sync endpoints. All routes require an administrator.
type Handler struct {
	logger  *slog.Logger
	service SyncService
	admin   func(http.Handler) http.Handler
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service SyncService, admin func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, admin: admin}
}

// MountRoutes registers sync routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.admin != nil {
			r.Use(h.admin)
		}
		r.Post("/recalculate-all-prices", h.recalculateAll)
		r.Get("/sync-status", h.syncStatus)
	})
}

func (h *Handler) recalculateAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunActive(r.Context(), TriggerManual)
	if err != nil {
		if !errors.Is(err, pricing.ErrNoActiveRates) {
			h.logger.Error("recalculate all prices", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type statusResponse struct {
	Last   *Result  `json:"last"`
	Recent []Result `json:"recent"`
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	last, found, err := h.service.Status(r.Context())
	if err != nil {
		h.logger.Error("load sync status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	recent, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("load recent syncs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp := statusResponse{Recent: recent}
	if found {
		resp.Last = &last
	}
	if resp.Recent == nil {
		resp.Recent = []Result{}
	}
	httpx.JSON(w, http.StatusOK, resp)
}
