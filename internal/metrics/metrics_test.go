package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fishmapai/fishmap-gateway/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()

	m.ObserveRefresh("scheduled", nil)
	m.ObserveRefresh("scheduled", errors.New("401"))
	m.ObserveRefresh("visibility", nil)
	m.ObserveGate("authenticated")
	m.SetActiveSessions(3)

	count, err := testutil.GatherAndCount(m.Registry(), "fishmap_gateway_token_refresh_total")
	require.NoError(t, err)
	require.Equal(t, 3, count) // three label combinations
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.ObserveBackend(http.MethodGet, "/admin/token", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `fishmap_gateway_backend_request_seconds_count{method="GET",path="/admin/token",status="2xx"} 1`)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.ObserveRefresh("scheduled", nil)
		m.ObserveGate("checking")
		m.ObserveBackend("GET", "/", 0, time.Second)
		m.SetActiveSessions(1)
		m.LoginRateLimited()
	})
}
