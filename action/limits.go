package action

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limits rate-limits mutations per actor. Each actor gets its own token
// bucket, created on first use. A nil *Limits allows everything.
type Limits struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewLimits creates a per-actor limiter allowing perSec actions per second
// with the given burst. Non-positive perSec disables limiting.
func NewLimits(perSec float64, burst int) *Limits {
	if perSec <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limits{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSec),
		burst:    burst,
	}
}

// Allow reports whether actor may perform one action now.
func (l *Limits) Allow(actor string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[actor]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[actor] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
