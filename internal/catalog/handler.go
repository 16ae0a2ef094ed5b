package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jewelcraft/metalpricing/internal/platform/httpx"
	"github.com/jewelcraft/metalpricing/internal/shared"
)

// ItemService is the catalog surface used by Handler.
type ItemService interface {
	Item(ctx context.Context, id int64) (Item, error)
	SetPricingAttributes(ctx context.Context, id int64, attrs Attributes, actor string) (Item, error)
}

// Handler exposes admin item pricing endpoints.
type Handler struct {
	logger  *slog.Logger
	service ItemService
	admin   func(http.Handler) http.Handler
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service ItemService, admin func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, admin: admin}
}

// MountRoutes registers item routes; all of them require an administrator.
func (h *Handler) MountRoutes(r chi.Router) {
	if h.admin != nil {
		r.Use(h.admin)
	}
	r.Get("/items/{id}", h.getItem)
	r.Put("/items/{id}/pricing", h.setPricing)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Item(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) setPricing(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var attrs Attributes
	if err := httpx.DecodeJSON(r, &attrs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	item, err := h.service.SetPricingAttributes(r.Context(), id, attrs, actor.ID)
	if err != nil {
		h.logger.Warn("set item pricing", slog.Int64("item_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func itemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &httpx.ValidationError{Fields: map[string]string{"id": "id must be a positive integer"}}
	}
	return id, nil
}
