package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/allisson/vaultfs/internal/testutil"
)

func newRateLimitedRouter(t *testing.T, class RateClass, keyFn func(c *gin.Context) string) *gin.Engine {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := NewRateLimiterStore(ctx, class)
	router := gin.New()
	router.GET("/limited/:id", RateLimitMiddleware(store, keyFn, nil, testutil.DiscardLogger()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func doRequest(router *gin.Engine, ip, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":12345"
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_BurstThenReject(t *testing.T) {
	// Two tokens per 12h, matching the register class shape.
	class := RateClass{Name: "register", Limit: rate.Every(6 * time.Hour), Burst: 2}
	router := newRateLimitedRouter(t, class, nil)

	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1", "/limited/x").Code)
	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1", "/limited/x").Code)

	rejected := doRequest(router, "10.0.0.1", "/limited/x")
	assert.Equal(t, http.StatusTooManyRequests, rejected.Code)
	assert.NotEmpty(t, rejected.Header().Get("Retry-After"))
}

func TestRateLimitMiddleware_KeysOnClientIP(t *testing.T) {
	class := RateClass{Name: "login", Limit: rate.Every(time.Hour), Burst: 1}
	router := newRateLimitedRouter(t, class, nil)

	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1", "/limited/x").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1", "/limited/x").Code)

	// A different client IP has its own bucket.
	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.2", "/limited/x").Code)
}

func TestRateLimitMiddleware_PerResourceKey(t *testing.T) {
	// Per-file download limiting: the key extends the IP with the path id.
	class := RateClass{Name: "download", Limit: rate.Every(8 * time.Hour), Burst: 1}
	router := newRateLimitedRouter(t, class, func(c *gin.Context) string {
		return c.Param("id")
	})

	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1", "/limited/file-a").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1", "/limited/file-a").Code)

	// Same IP, different file: separate bucket.
	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1", "/limited/file-b").Code)
}

func TestGeneralClass(t *testing.T) {
	class := GeneralClass(10, 30)
	assert.Equal(t, "general", class.Name)
	assert.Equal(t, rate.Limit(10), class.Limit)
	assert.Equal(t, 30, class.Burst)
}
