package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstrumentedRouter(t *testing.T) (*gin.Engine, *Provider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("http_test")
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	})

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "http_test"))
	router.GET("/v1/transactions/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	router.POST("/v1/transactions", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"stage": "intake"})
	})
	router.GET("/v1/transactions/:id/content", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, provider
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	t.Run("Success_UsesRoutePattern", func(t *testing.T) {
		router, provider := newInstrumentedRouter(t)

		for _, id := range []string{"a", "b", "c"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/transactions/"+id, nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}

		output := scrape(t, provider)
		assertBizMetricLine(t, output, `http_test_http_requests_total`,
			`method="GET".*path="/v1/transactions/:id".*status_code="200"`, `3`)
		assertBizMetricLine(t, output, `http_test_http_request_duration_seconds_count`,
			`path="/v1/transactions/:id"`, `3`)
		assertBizMetricLine(t, output, `http_test_http_response_size_bytes(_bytes)?_count`,
			`path="/v1/transactions/:id"`, `3`)
	})

	t.Run("Success_UnmatchedRoutesShareOneSeries", func(t *testing.T) {
		router, provider := newInstrumentedRouter(t)

		for _, p := range []string{"/admin", "/wp-login.php"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
			assert.Equal(t, http.StatusNotFound, w.Code)
		}

		output := scrape(t, provider)
		assertBizMetricLine(t, output, `http_test_http_requests_total`,
			`path="unmatched".*status_code="404"`, `2`)
	})

	t.Run("Success_InFlightReturnsToZero", func(t *testing.T) {
		router, provider := newInstrumentedRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/transactions", nil))
		assert.Equal(t, http.StatusCreated, w.Code)

		output := scrape(t, provider)
		assertBizMetricLine(t, output, `http_test_http_requests_in_flight`, ``, `0`)
	})

	t.Run("Success_EmptyBodyNotObserved", func(t *testing.T) {
		router, provider := newInstrumentedRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/transactions/x/content", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)

		output := scrape(t, provider)
		assertBizMetricLine(t, output, `http_test_http_requests_total`, `status_code="204"`, `1`)
		assert.NotRegexp(t, `http_response_size_bytes(_bytes)?_count\{[^}]*status_code="204"`, output)
	})
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/v1/folders/:stage/stats", sanitizePath("/v1/folders/:stage/stats"))
	assert.Equal(t, "/", sanitizePath("/"))
	assert.Equal(t, "unmatched", sanitizePath(""))
}
