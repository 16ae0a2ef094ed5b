package rates

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jewelcraft/metalpricing/internal/platform/httpx"
	"github.com/jewelcraft/metalpricing/internal/shared"
)

// MessageNotSet is returned by current-rates before any update.
const MessageNotSet = "Metal rates have not been set. Please configure rates first."

// RateService is the workflow surface used by the HTTP handler.
type RateService interface {
	Active(ctx context.Context) (Snapshot, bool, error)
	History(ctx context.Context, page, limit int) (HistoryPage, error)
	UpdateRates(ctx context.Context, req UpdateRatesRequest, actor, idempotencyKey string) (UpdateResult, error)
}

// Handler exposes rate endpoints.
type Handler struct {
	logger  *slog.Logger
	service RateService
	admin   func(http.Handler) http.Handler
}

// NewHandler builds a Handler. admin gates mutation and audit endpoints.
func NewHandler(logger *slog.Logger, service RateService, admin func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, admin: admin}
}

// MountRoutes registers rate routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/current-rates", h.currentRates)
	r.Group(func(r chi.Router) {
		if h.admin != nil {
			r.Use(h.admin)
		}
		r.Post("/update-rates", h.updateRates)
		r.Get("/rate-history", h.rateHistory)
	})
}

type currentRatesResponse struct {
	Rates   *Snapshot `json:"rates"`
	Message string    `json:"message,omitempty"`
}

func (h *Handler) currentRates(w http.ResponseWriter, r *http.Request) {
	snap, found, err := h.service.Active(r.Context())
	if err != nil {
		h.logger.Error("load current rates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !found {
		httpx.JSON(w, http.StatusOK, currentRatesResponse{Message: MessageNotSet})
		return
	}
	httpx.JSON(w, http.StatusOK, currentRatesResponse{Rates: &snap})
}

func (h *Handler) updateRates(w http.ResponseWriter, r *http.Request) {
	var req UpdateRatesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	result, err := h.service.UpdateRates(r.Context(), req, actor.ID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.logger.Warn("update rates rejected", slog.String("actor", actor.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) rateHistory(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := h.service.History(r.Context(), page, limit)
	if err != nil {
		h.logger.Error("load rate history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, history)
}
