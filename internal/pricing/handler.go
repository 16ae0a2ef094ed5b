package pricing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jewelcraft/metalpricing/internal/platform/httpx"
)

// QuoteService prices ad-hoc inputs.
type QuoteService interface {
	Quote(ctx context.Context, in Input) (Breakdown, error)
}

// Handler exposes the public calculator endpoints.
type Handler struct {
	logger   *slog.Logger
	quotes   QuoteService
	options  OptionsProvider
	validate *validator.Validate
}

// NewHandler builds a Handler. options may be nil.
func NewHandler(logger *slog.Logger, quotes QuoteService, options OptionsProvider) *Handler {
	return &Handler{logger: logger, quotes: quotes, options: options, validate: httpx.NewValidator()}
}

// MountRoutes registers calculator routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/calculate-price", h.calculatePrice)
	r.Get("/options", h.validOptions)
}

func (h *Handler) calculatePrice(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validate, in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	breakdown, err := h.quotes.Quote(r.Context(), in)
	if err != nil {
		if !errors.Is(err, httpx.ErrUnsupported) && !errors.Is(err, httpx.ErrInvalidInput) && !errors.Is(err, httpx.ErrPrecondition) {
			h.logger.Error("calculate price", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, breakdown)
}

func (h *Handler) validOptions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, ResolveOptions(r.Context(), h.options, h.logger))
}
