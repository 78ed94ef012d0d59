package httpcache

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Default per-host request rate.
const (
	DefaultRate  = 5
	DefaultBurst = 10
)

var globalRateLimiter = newHostRateLimiter(DefaultRate, DefaultBurst)

// SetRateLimit replaces the per-host limit for all subsequent upstream requests.
// A non-positive perSecond disables limiting.
func SetRateLimit(perSecond float64, burst int) {
	globalRateLimiter.reset(perSecond, burst)
}

// hostRateLimiter hands out one token bucket per upstream host.
type hostRateLimiter struct {
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
}

func newHostRateLimiter(perSecond float64, burst int) *hostRateLimiter {
	r := &hostRateLimiter{}
	r.reset(perSecond, burst)
	return r
}

func (r *hostRateLimiter) reset(perSecond float64, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.limit = rate.Limit(perSecond)
	if perSecond <= 0 {
		r.limit = rate.Inf
	}
	r.burst = max(burst, 1)
	r.limiters = map[string]*rate.Limiter{}
}

// Wait blocks until host may be contacted again or ctx ends.
func (r *hostRateLimiter) Wait(ctx context.Context, host string) error {
	if host == "" {
		return nil
	}

	r.mu.Lock()
	l, ok := r.limiters[host]
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
		r.limiters[host] = l
	}
	r.mu.Unlock()

	return l.Wait(ctx)
}
