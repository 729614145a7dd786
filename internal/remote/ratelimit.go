package remote

import (
	"sync"
	"time"
)

// rateLimiter tracks per-endpoint rate-limit windows. While a window
// is open, calls to that endpoint fail fast without network I/O and
// without consuming a retry.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]time.Time
	now     func() time.Time
}

func newRateLimiter(now func() time.Time) *rateLimiter {
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{
		windows: make(map[string]time.Time),
		now:     now,
	}
}

// check returns a RateLimitError when the endpoint's window is still
// open. Expired windows are removed.
func (r *rateLimiter) check(endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	resetAt, ok := r.windows[endpoint]
	if !ok {
		return nil
	}
	remaining := resetAt.Sub(r.now())
	if remaining <= 0 {
		delete(r.windows, endpoint)
		return nil
	}
	return &Error{
		Class:      ClassRateLimit,
		Op:         endpoint,
		RetryAfter: remaining,
	}
}

// set opens (or extends) the endpoint's window until resetAt.
func (r *rateLimiter) set(endpoint string, resetAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if resetAt.After(r.windows[endpoint]) {
		r.windows[endpoint] = resetAt
	}
}
