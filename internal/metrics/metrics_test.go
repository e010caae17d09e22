package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersSeriesObservableViaHandler(t *testing.T) {
	m := New()
	m.QueriesTotal.WithLabelValues("exact").Inc()
	m.HeartbeatMisses.Inc()
	m.ReplicationFactor.WithLabelValues("Stage*").Set(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesTotal.WithLabelValues("exact")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HeartbeatMisses))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ReplicationFactor.WithLabelValues("Stage*")))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "idioms_queries_total")
}
