package capture

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter paces requests per host. A nil *HostLimiter never blocks.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewHostLimiter creates a limiter allowing rps requests per second per host. It returns nil
// when rps is not positive.
func NewHostLimiter(rps float64, burst int) *HostLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Wait blocks until the host may be contacted again or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	limiter, exists := h.limiters[host]
	if !exists {
		limiter = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("host rate limit wait: %w", err)
	}
	return nil
}
