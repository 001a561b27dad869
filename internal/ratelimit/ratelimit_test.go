package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CountsWithinWindow(t *testing.T) {
	store := NewMemoryStore()

	for i := int64(1); i <= 3; i++ {
		count, ttl, err := store.Incr(context.Background(), "1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	}

	// A different key counts independently.
	count, _, err := store.Incr(context.Background(), "5.6.7.8", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_WindowReset(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }

	_, _, err := store.Incr(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	_, _, err = store.Incr(context.Background(), "k", time.Minute)
	require.NoError(t, err)

	current = current.Add(61 * time.Second)

	count, _, err := store.Incr(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "an expired window starts a fresh count")
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func newLimitedRouter(store Store, maxRequests int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	limiter := NewLimiter(store, maxRequests, time.Minute, slog.New(slog.DiscardHandler))

	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return router
}

func TestMiddleware_AllowsThenBlocks(t *testing.T) {
	router := newLimitedRouter(NewMemoryStore(), 2)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddleware_FailsOpenOnStoreError(t *testing.T) {
	router := newLimitedRouter(failingStore{}, 1)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code, "store failures must not block traffic")
	}
}

func TestMiddleware_SetsRateLimitHeaders(t *testing.T) {
	router := newLimitedRouter(NewMemoryStore(), 10)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}
