package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jewelcraft/metalpricing/internal/adminauth"
	"github.com/jewelcraft/metalpricing/internal/catalog"
	"github.com/jewelcraft/metalpricing/internal/observability"
	"github.com/jewelcraft/metalpricing/internal/pricing"
	"github.com/jewelcraft/metalpricing/internal/pricingsync"
	"github.com/jewelcraft/metalpricing/internal/rates"
	"github.com/jewelcraft/metalpricing/jobs"
)

const adminToken = "router-test-token"

type memoryRates struct {
	mu    sync.Mutex
	snaps []rates.Snapshot
}

func (m *memoryRates) GetActive(ctx context.Context) (rates.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.snaps) - 1; i >= 0; i-- {
		if m.snaps[i].IsActive {
			return m.snaps[i], true, nil
		}
	}
	return rates.Snapshot{}, false, nil
}

func (m *memoryRates) Save(ctx context.Context, s rates.Snapshot) (rates.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = int64(len(m.snaps) + 1)
	m.snaps = append(m.snaps, s)
	return s, nil
}

func (m *memoryRates) DeactivateAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.snaps {
		m.snaps[i].IsActive = false
	}
	return nil
}

func (m *memoryRates) SwitchActive(ctx context.Context, s rates.Snapshot) (rates.Snapshot, error) {
	if err := m.DeactivateAll(ctx); err != nil {
		return rates.Snapshot{}, err
	}
	return m.Save(ctx, s)
}

func (m *memoryRates) History(ctx context.Context, page, pageSize int) ([]rates.Snapshot, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]rates.Snapshot, 0, len(m.snaps))
	for i := len(m.snaps) - 1; i >= 0; i-- {
		out = append(out, m.snaps[i])
	}
	return out, len(out), nil
}

type memoryCatalog struct {
	mu    sync.Mutex
	items []catalog.Item
}

func (c *memoryCatalog) FindActiveItems(ctx context.Context) ([]catalog.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]catalog.Item(nil), c.items...), nil
}

func (c *memoryCatalog) UpdateItemPricingFields(ctx context.Context, id int64, b pricing.Breakdown, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Price = b.TotalPrice
		}
	}
	return nil
}

type recordingDispatcher struct {
	snapshots []int64
}

func (d *recordingDispatcher) DispatchPricingSync(ctx context.Context, snap rates.Snapshot) (string, error) {
	d.snapshots = append(d.snapshots, snap.ID)
	return "pricing-sync-test", nil
}

func newTestAPI(t *testing.T, cat *memoryCatalog) (http.Handler, *recordingDispatcher) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	require.NoError(t, err)
	authorizer, err := adminauth.NewTokenAuthorizer(string(hash))
	require.NoError(t, err)
	admin := adminauth.Middleware{Authorizer: authorizer, Logger: logger}.RequireAdmin

	dispatcher := &recordingDispatcher{}
	ratesSvc := rates.NewService(&memoryRates{}, nil, dispatcher, nil, nil, logger)
	quoter := pricing.NewQuoter(ratesSvc, nil)
	runner := pricingsync.NewRunner(pricingsync.NewSyncer(cat, pricingsync.Options{Logger: logger}), ratesSvc, nil, time.Minute, logger)

	cfg := &Config{AppRequestTimeout: 5 * time.Second, RateLimitPerMin: 1000}
	return NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		RatesHandler:   rates.NewHandler(logger, ratesSvc, admin),
		PricingHandler: pricing.NewHandler(logger, quoter, nil),
		SyncHandler:    pricingsync.NewHandler(logger, runner, admin),
		JobHandler:     jobs.NewHandler(nil, logger),
		Metrics:        observability.NewMetrics(),
	}), dispatcher
}

func do(t *testing.T, h http.Handler, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
		req.Header.Set(adminauth.ActorHeader, "store-owner")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPricingFlowEndToEnd(t *testing.T) {
	cat := &memoryCatalog{items: []catalog.Item{
		{ID: 1, SKU: "RING-1", IsActive: true, Metal: "Gold", Purity: "22K", Weight: catalog.Weight{Value: 10, Unit: "grams"}, Pricing: catalog.Pricing{Wastage: 0.5, MakingCharges: 2000}},
		{ID: 2, SKU: "BAD-2", IsActive: true, Metal: "Gold", Purity: "10K", Weight: catalog.Weight{Value: 2, Unit: "grams"}, Price: 42},
	}}
	api, dispatcher := newTestAPI(t, cat)

	rec := do(t, api, http.MethodPost, "/api/pricing/calculate-price", `{"metal":"Gold","purity":"22K","weight":1}`, false)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, api, http.MethodPost, "/api/pricing/update-rates", `{"goldRate24K":6000,"silverRate999":75,"diamondRatePerCarat":50000}`, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, api, http.MethodPost, "/api/pricing/update-rates", `{"goldRate24K":6000,"silverRate999":75,"diamondRatePerCarat":50000}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, []int64{1}, dispatcher.snapshots)

	rec = do(t, api, http.MethodGet, "/api/pricing/current-rates", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var current struct {
		Rates rates.Snapshot `json:"rates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	require.Equal(t, 5496.0, current.Rates.GoldRate22K)
	require.Equal(t, "store-owner", current.Rates.UpdatedBy)

	rec = do(t, api, http.MethodPost, "/api/pricing/calculate-price", `{"metal":"Gold","purity":"22K","weight":10,"wastage":0.5,"makingCharges":2000}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var quote pricing.Breakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	require.Equal(t, 59708.0, quote.TotalPrice)

	rec = do(t, api, http.MethodPost, "/api/pricing/recalculate-all-prices", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var result pricingsync.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.Updated)
	require.Equal(t, 1, result.Errors)
	require.Equal(t, 59708.0, cat.items[0].Price)
	require.Equal(t, 42.0, cat.items[1].Price)

	rec = do(t, api, http.MethodGet, "/api/pricing/rate-history", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	api, _ := newTestAPI(t, &memoryCatalog{})

	rec := do(t, api, http.MethodGet, "/healthz", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, api, http.MethodGet, "/jobs/health", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, api, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "pricing_http_requests_total")

	rec = do(t, api, http.MethodGet, "/api/pricing/options", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
