package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_Allow(t *testing.T) {
	t.Run("WithinBurst", func(t *testing.T) {
		limiter := newIPRateLimiter(1, 3)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.allow("10.0.0.1"))
		}
	})

	t.Run("OverBurst", func(t *testing.T) {
		limiter := newIPRateLimiter(0.001, 2)

		assert.True(t, limiter.allow("10.0.0.1"))
		assert.True(t, limiter.allow("10.0.0.1"))
		assert.False(t, limiter.allow("10.0.0.1"))
	})

	t.Run("ClientsAreIndependent", func(t *testing.T) {
		limiter := newIPRateLimiter(0.001, 1)

		assert.True(t, limiter.allow("10.0.0.1"))
		assert.False(t, limiter.allow("10.0.0.1"))
		assert.True(t, limiter.allow("10.0.0.2"))
	})
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	limiter := newIPRateLimiter(1, 1)
	limiter.staleTTL = time.Millisecond

	limiter.allow("10.0.0.1")
	assert.Len(t, limiter.clients, 1)

	time.Sleep(5 * time.Millisecond)
	limiter.sweep()

	assert.Empty(t, limiter.clients)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimitMiddleware(0.001, 2, testLogger()))
	router.POST("/v1/messages", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	doRequest := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
		req.RemoteAddr = "10.0.0.1:51234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, doRequest())
	assert.Equal(t, http.StatusCreated, doRequest())
	assert.Equal(t, http.StatusTooManyRequests, doRequest())
}
