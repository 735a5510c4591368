package orchestrator

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPause is the gap kept between two consecutive validation calls.
const DefaultPause = 500 * time.Millisecond

// Pacer gates validation calls. Wait blocks until the next call may start or
// ctx is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedPause sleeps for a fixed duration before every call after the first.
type FixedPause struct {
	Pause time.Duration
}

func (p FixedPause) Wait(ctx context.Context) error {
	if p.Pause <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RateLimit is a token bucket shared by concurrent callers.
type RateLimit struct {
	limiter *rate.Limiter
}

// NewRateLimit allows one call per interval with the given burst.
func NewRateLimit(interval time.Duration, burst int) *RateLimit {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimit{limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimit) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// NoPause lets every call through immediately.
type NoPause struct{}

func (NoPause) Wait(ctx context.Context) error { return ctx.Err() }
