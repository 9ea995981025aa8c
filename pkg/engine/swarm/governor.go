// Package swarm paces calls against rate-limited provider APIs.
package swarm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Governor is a shared token bucket whose refill rate adapts with AIMD:
// additive increase on healthy calls, multiplicative decrease on throttling.
type Governor struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	current    float64
	minRate    float64
	maxRate    float64
	step       float64
	lastChange time.Time
	cooldown   time.Duration

	// IsThrottle classifies provider errors. Nil means nothing throttles.
	IsThrottle func(error) bool

	now func() time.Time
}

// NewGovernor starts at start calls/sec, bounded by [min, max].
func NewGovernor(start, min, max float64, burst int) *Governor {
	if burst < 1 {
		burst = 1
	}
	now := time.Now
	return &Governor{
		limiter:    rate.NewLimiter(rate.Limit(start), burst),
		current:    start,
		minRate:    min,
		maxRate:    max,
		step:       0.5,
		cooldown:   100 * time.Millisecond,
		lastChange: now(),
		now:        now,
	}
}

// Wait blocks until a call may proceed or ctx is done.
func (g *Governor) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// Observe feeds the result of a gated call back into the governor.
func (g *Governor) Observe(err error) {
	throttled := err != nil && g.IsThrottle != nil && g.IsThrottle(err)
	if err != nil && !throttled {
		// Non-throttle failures say nothing about capacity.
		return
	}
	g.Feedback(throttled)
}

// Rate returns the current refill rate in calls/sec.
func (g *Governor) Rate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Feedback adjusts the rate.
func (g *Governor) Feedback(throttled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	// dampen oscillation
	if now.Sub(g.lastChange) < g.cooldown {
		return
	}

	if throttled {
		g.current = g.current / 2
		if g.current < g.minRate {
			g.current = g.minRate
		}
	} else {
		if g.current >= g.maxRate {
			return
		}
		g.current += g.step
		if g.current > g.maxRate {
			g.current = g.maxRate
		}
	}
	g.lastChange = now
	g.limiter.SetLimitAt(now, rate.Limit(g.current))
}
