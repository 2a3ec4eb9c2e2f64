// Package throttle spaces consecutive calls to remote APIs.
package throttle

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Pacer lets one call through per interval. A zero interval never blocks.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing one call per interval
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call may start or ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Interval returns the configured spacing, zero when unlimited
func (p *Pacer) Interval() time.Duration {
	limit := p.limiter.Limit()
	if limit == rate.Inf || limit <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(time.Second) / float64(limit)))
}
