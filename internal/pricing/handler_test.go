package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/jewelcraft/metalpricing/internal/rates"
)

type stubRates struct {
	snap  rates.Snapshot
	found bool
	err   error
}

func (s stubRates) Active(ctx context.Context) (rates.Snapshot, bool, error) {
	return s.snap, s.found, s.err
}

type stubOptions struct {
	vocab Vocabulary
	err   error
}

func (s stubOptions) ValidOptions(ctx context.Context) (Vocabulary, error) {
	return s.vocab, s.err
}

func newPricingRouter(active ActiveRates, options OptionsProvider) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewQuoter(active, nil), options)
	r := chi.NewRouter()
	r.Route("/api/pricing", h.MountRoutes)
	return r
}

func postCalculate(router http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/pricing/calculate-price", strings.NewReader(body)))
	return rec
}

func TestCalculatePriceEndpoint(t *testing.T) {
	router := newPricingRouter(stubRates{snap: *testSnapshot(t), found: true}, nil)

	rec := postCalculate(router, `{"metal":"Gold","purity":"22K","weight":10,"wastage":0.5,"makingCharges":2000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got Breakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 5496.0, got.MetalRate)
	require.Equal(t, 10.5, got.TotalWeight)
	require.Equal(t, 57708.0, got.MetalCost)
	require.Equal(t, 59708.0, got.TotalPrice)
}

func TestCalculatePriceEndpointErrors(t *testing.T) {
	withRates := newPricingRouter(stubRates{snap: *testSnapshot(t), found: true}, nil)
	withoutRates := newPricingRouter(stubRates{}, nil)
	broken := newPricingRouter(stubRates{err: errors.New("db down")}, nil)

	cases := []struct {
		name   string
		router http.Handler
		body   string
		status int
	}{
		{"unsupported", withRates, `{"metal":"Gold","purity":"10K","weight":5}`, http.StatusBadRequest},
		{"zero weight", withRates, `{"metal":"Gold","purity":"22K","weight":0}`, http.StatusBadRequest},
		{"missing metal", withRates, `{"purity":"22K","weight":1}`, http.StatusBadRequest},
		{"malformed", withRates, `{"metal":`, http.StatusBadRequest},
		{"no rates", withoutRates, `{"metal":"Gold","purity":"22K","weight":1}`, http.StatusConflict},
		{"storage", broken, `{"metal":"Gold","purity":"22K","weight":1}`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postCalculate(tc.router, tc.body)
			require.Equal(t, tc.status, rec.Code)
			require.NotContains(t, rec.Body.String(), "totalPrice")
		})
	}
}

func TestNoRatesMessage(t *testing.T) {
	rec := postCalculate(newPricingRouter(stubRates{}, nil), `{"metal":"Gold","purity":"22K","weight":1}`)
	require.Contains(t, rec.Body.String(), "please configure rates first")
}

func TestOptionsEndpointFallsBack(t *testing.T) {
	router := newPricingRouter(stubRates{}, stubOptions{err: errors.New("settings unavailable")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pricing/options", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var vocab Vocabulary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vocab))
	require.Equal(t, SourceDefault, vocab.Source)
	require.Contains(t, vocab.Metals, "Gold")
}
