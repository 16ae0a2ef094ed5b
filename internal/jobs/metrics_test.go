package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerEnd(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("pricing_sync").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("pricing_sync").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("pricing_sync", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("pricing_sync", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("pricing_sync")))
}

func TestAddSyncItems(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddSyncItems("manual", 4, 1)
	m.AddSyncItems("manual", 2, 0)

	require.Equal(t, 6.0, testutil.ToFloat64(m.syncItems.WithLabelValues("manual", "updated")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.syncItems.WithLabelValues("manual", "error")))
	require.Greater(t, testutil.ToFloat64(m.lastSync.WithLabelValues("manual")), 0.0)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.AddSyncItems("manual", 1, 1)
	require.NoError(t, m.Track("x").End(nil))
}
