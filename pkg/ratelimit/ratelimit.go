package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter paces outbound search calls so a multi-keyword run stays
// under the service quota. It enforces a minimum interval between
// operations, with optional jitter so bursts of runs don't align into
// a fixed cadence. It is safe for concurrent use by multiple
// goroutines.
type Limiter struct {
	ticker   *time.Ticker
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
	ch       <-chan time.Time
}

// NewLimiter creates a limiter that allows one operation per interval.
// Jitter must be between 0.0 and 1.0 and widens each wait by up to
// jitter*interval. A non-positive interval returns a limiter that never
// blocks.
func NewLimiter(interval time.Duration, jitter float64) *Limiter {
	if interval <= 0 {
		return &Limiter{jitter: jitter}
	}

	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	ticker := time.NewTicker(interval)

	return &Limiter{
		ticker:   ticker,
		jitter:   jitter,
		interval: interval,
		ch:       ticker.C,
	}
}

// Wait blocks until the next operation may proceed, or until the
// context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ch == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
		if l.jitter > 0 {
			extra := time.Duration(float64(l.interval) * l.jitter * rand.Float64())
			if extra > 0 {
				select {
				case <-time.After(extra):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return nil
}

// Stop releases any resources associated with the limiter.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}
