package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/revision-history-service/internal/metrics"
)

func TestMiddleware_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New(false)
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/items/1", "/items/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP revision_history_http_requests_total HTTP requests by method, route and status.
# TYPE revision_history_http_requests_total counter
revision_history_http_requests_total{method="GET",route="/items/:id",status="200"} 2
revision_history_http_requests_total{method="GET",route="unmatched",status="404"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "revision_history_http_requests_total"))
}

func TestObserveEnumeration(t *testing.T) {
	m := metrics.New(false)
	m.ObserveEnumeration("enumerate", "ok", 10)
	m.ObserveEnumeration("enumerate", "ok", 3)
	m.ObserveEnumeration("latest", "usage", 0)

	expected := `
# HELP revision_history_enumerations_total Revision enumerations by mode and outcome.
# TYPE revision_history_enumerations_total counter
revision_history_enumerations_total{mode="enumerate",outcome="ok"} 2
revision_history_enumerations_total{mode="latest",outcome="usage"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "revision_history_enumerations_total"))
	n, err := testutil.GatherAndCount(m.Registry(), "revision_history_enumeration_rows")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandler_ServesExposition(t *testing.T) {
	m := metrics.New(true)
	m.ObserveEnumeration("byids", "ok", 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "revision_history_enumerations_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
