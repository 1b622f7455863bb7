package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Default limiter settings: sustained calls per second and burst size.
const (
	DefaultRate  = 8
	DefaultBurst = 20
)

// RateLimited gates every call through a shared token bucket. Callers over
// the limit wait for a token instead of failing.
type RateLimited struct {
	next    Client
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limiter of perSecond calls and burst.
// Non-positive values use the defaults.
func NewRateLimited(next Client, perSecond float64, burst int) *RateLimited {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Complete(ctx context.Context, prompt, model string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Complete(ctx, prompt, model)
}
