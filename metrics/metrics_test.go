package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.TicksTotal)
	require.NotNil(t, r.DrawDuration)
	require.NotNil(t, r.HTTPRequestsTotal)
	require.NotNil(t, r.GetPrometheusRegistry())
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}

func TestRecorders(t *testing.T) {
	r := NewRegistry()
	r.TicksTotal.Add(3)
	r.RecordDraw("retained", time.Millisecond)
	r.RecordDraw("retained", 2*time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/graphs/{id}", "200", 5*time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.TicksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("GET", "/api/graphs/{id}", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.DrawDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.DragsTotal.Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "forcegraph_drags_total 1")
}
