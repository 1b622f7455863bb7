package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// MaxRetries bounds the retries of a rate-limited call.
const MaxRetries = 3

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Retrying retries calls the provider rejected with 429, so provider rate
// limits surface to callers as delay. Other failures are returned at once.
type Retrying struct {
	next    Client
	retries int
	backoff func(attempt int) time.Duration
}

func NewRetrying(next Client, retries int) *Retrying {
	if retries < 0 {
		retries = MaxRetries
	}
	return &Retrying{next: next, retries: retries, backoff: Backoff}
}

func (r *Retrying) Complete(ctx context.Context, prompt, model string) (string, error) {
	for attempt := 0; ; attempt++ {
		out, err := r.next.Complete(ctx, prompt, model)
		if err == nil || !errors.Is(err, ErrRateLimited) || attempt >= r.retries {
			return out, err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}
}
