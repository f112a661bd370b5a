package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/wavtrack/pkg/errors"
	"github.com/charlesng35/wavtrack/pkg/response"
)

// windowCounter counts requests per key within fixed windows.
type windowCounter struct {
	mu    sync.Mutex
	data  map[string]*window
	clock func() time.Time
}

type window struct {
	count int
	end   time.Time
}

func newWindowCounter(clock func() time.Time) *windowCounter {
	if clock == nil {
		clock = time.Now
	}
	return &windowCounter{data: make(map[string]*window), clock: clock}
}

// increment counts a request for key and returns the count so far and the
// time until the window resets. Expired windows are pruned as a side effect.
func (w *windowCounter) increment(key string, size time.Duration) (int, time.Duration) {
	now := w.clock()

	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.data) > 1024 {
		for k, v := range w.data {
			if now.After(v.end) {
				delete(w.data, k)
			}
		}
	}

	current, ok := w.data[key]
	if !ok || now.After(current.end) {
		current = &window{end: now.Add(size)}
		w.data[key] = current
	}
	current.count++
	return current.count, current.end.Sub(now)
}

// RateLimit limits requests per client IP and route within a fixed window.
// A non-positive limit or window disables limiting.
func RateLimit(maxRequests int, size time.Duration) gin.HandlerFunc {
	return rateLimit(maxRequests, size, nil)
}

func rateLimit(maxRequests int, size time.Duration, clock func() time.Time) gin.HandlerFunc {
	counter := newWindowCounter(clock)

	return func(c *gin.Context) {
		if maxRequests <= 0 || size <= 0 {
			c.Next()
			return
		}

		count, resetIn := counter.increment(c.ClientIP()+"|"+c.FullPath(), size)
		remaining := maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > maxRequests {
			c.Header("Retry-After", strconv.Itoa(int(resetIn.Seconds())+1))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}
		c.Next()
	}
}
