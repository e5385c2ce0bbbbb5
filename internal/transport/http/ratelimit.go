package http

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// rateLimiter is a fixed one-minute window counter shared by all writers.
type rateLimiter struct {
	mu          sync.Mutex
	limit       int
	counter     int
	window      time.Duration
	windowStart time.Time
	clock       clock.Clock
}

func newRateLimiter(limit int, clk clock.Clock) *rateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	return &rateLimiter{
		limit:  limit,
		window: time.Minute,
		clock:  clk,
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if now.Sub(r.windowStart) >= r.window {
		r.windowStart = now
		r.counter = 0
	}
	r.counter++
	return r.counter <= r.limit
}
