package observability

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.ObserveRequest(http.MethodPost, "/campaigns/:id/donate", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/campaigns/:id/donate", http.StatusOK, 30*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	m.ContributionRecorded(100)
	m.ContributionRecorded(50)
	m.RefundRequested()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/campaigns/:id/donate", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.contributions))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.contributedAmount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refundRequests))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledger_contributed_amount_total 150")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
		m.ContributionRecorded(1)
		m.RefundRequested()
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown", "campaign", "c1")

	out, err := io.ReadAll(&buf)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hidden")
	assert.Contains(t, string(out), `"msg":"shown"`)
	assert.Contains(t, string(out), `"campaign":"c1"`)

	buf.Reset()
	NewLogger(LogConfig{Format: "text", Output: &buf}).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
