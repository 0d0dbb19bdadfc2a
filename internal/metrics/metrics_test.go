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

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.LoginAttempt("failure")
	c.LoginAttempt("failure")
	c.ApplicationReviewed("approved")
	c.OrphansRemoved(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.logins.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reviews.WithLabelValues("approved")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sweptFiles))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveHTTP("GET", "/api/healthz", 200, time.Millisecond)
		c.ApplicationSubmitted("accepted")
		c.LoginAttempt("success")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.ObserveHTTP("GET", "/api/healthz", http.StatusOK, 5*time.Millisecond)
	reg, err := NewRegistry(c)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cyberwise_http_requests_total{method="GET",route="/api/healthz",status="200"} 1`)
}
