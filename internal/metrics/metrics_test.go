package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRound()
	c.RecordRound()
	c.RecordCheck(OutcomeAvailable, 120*time.Millisecond)
	c.RecordCheck(OutcomeUnknown, 30*time.Millisecond)
	c.RecordRenderFailure()
	c.RecordNotification("became_available")

	assert.Equal(t, float64(2), testutil.ToFloat64(c.rounds))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.checks.WithLabelValues(OutcomeAvailable)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.checks.WithLabelValues(OutcomeUnknown)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.renderFail))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.notifications.WithLabelValues("became_available")))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRound()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "toyoko_rounds_total 1")
}
