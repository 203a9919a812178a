package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_IsolatedPerInstance(t *testing.T) {
	first := NewRegistry()
	second := NewRegistry()

	first.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(first.AuthAttemptsTotal.WithLabelValues("login", "success")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(second.AuthAttemptsTotal.WithLabelValues("login", "success")), 0)
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `accounts_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
