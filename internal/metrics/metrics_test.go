package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brizzai/simple-auth/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordRedirect(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRedirect("google", OutcomeRedirected)
	c.RecordRedirect("google", OutcomeRedirected)
	c.RecordRedirect(UnknownProvider, OutcomeProviderNotFound)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.redirects.WithLabelValues("google", OutcomeRedirected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.redirects.WithLabelValues(UnknownProvider, OutcomeProviderNotFound)))
}

func TestCollector_RecordCallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCallback(OutcomeAuthenticated, 20*time.Millisecond)
	c.RecordCallback(OutcomeError, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.callbacks.WithLabelValues(OutcomeAuthenticated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.callbacks.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.callbackLatency))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg).RecordRedirect("github", OutcomeRedirected)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := rec.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `simple_auth_redirects_total{outcome="redirected",provider="github"} 1`)
}

func TestNewRecorder(t *testing.T) {
	disabled := newRecorder(&config.Config{}, NewRegistry())
	assert.IsType(t, NopRecorder{}, disabled)

	enabled := newRecorder(&config.Config{Metrics: config.MetricsConfig{Enabled: true}}, NewRegistry())
	assert.IsType(t, &Collector{}, enabled)
}
