package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/citizenwallet/feed/internal/metrics"
	"golang.org/x/time/rate"
)

var ErrNoToken = errors.New("rate: cannot reserve token")

// Limiter paces the requests of one external client with a token bucket
type Limiter struct {
	limiter *rate.Limiter
	client  string
}

// NewLimiter allows rps requests per second with a burst of burst requests
func NewLimiter(rps float64, burst int, client string) *Limiter {
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		client:  client,
	}
}

// Wait blocks until one request is allowed or ctx is done. A nil limiter never waits.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	r := l.limiter.Reserve()
	if !r.OK() {
		return ErrNoToken
	}

	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	metrics.RateLimitWaits.WithLabelValues(l.client).Inc()

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}
