package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/wavtrack/pkg/response"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := &stepClock{now: time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)}

	r := gin.New()
	r.Use(rateLimit(2, time.Minute, clock.Now))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	serve := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		return w
	}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serve().Code)
	}

	limited := serve()
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.Equal(t, "0", limited.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, limited.Header().Get("Retry-After"))
	var payload response.Response
	require.NoError(t, json.Unmarshal(limited.Body.Bytes(), &payload))
	require.Equal(t, "RATE_LIMIT_EXCEEDED", payload.Error.Code)

	clock.Advance(time.Minute + time.Second)
	require.Equal(t, http.StatusOK, serve().Code, "a new window starts after the reset")
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(0, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
