package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, reader := newTestMeterProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider, "mailroom"))
	router.GET("/v1/messages/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/messages/123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	rm := collect(t, reader)

	counter, found := findMetric(rm, "mailroom_http_requests_total")
	require.True(t, found)
	sum, ok := counter.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)

	// Path label uses the route pattern, not the raw URL
	path, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("path"))
	require.True(t, ok)
	assert.Equal(t, "/v1/messages/:id", path.AsString())

	status, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("status_code"))
	require.True(t, ok)
	assert.Equal(t, "200", status.AsString())

	_, found = findMetric(rm, "mailroom_http_request_duration_seconds")
	assert.True(t, found)
}

func TestHTTPMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, reader := newTestMeterProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider, "mailroom"))

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	rm := collect(t, reader)
	counter, found := findMetric(rm, "mailroom_http_requests_total")
	require.True(t, found)
	sum, ok := counter.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	path, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("path"))
	require.True(t, ok)
	assert.Equal(t, "unknown", path.AsString())
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "unknown", sanitizePath(""))
	assert.Equal(t, "/v1/messages/:id", sanitizePath("/v1/messages/:id"))
}
