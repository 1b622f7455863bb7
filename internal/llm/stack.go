package llm

import (
	"log/slog"
	"time"
)

// Layers configures the wrappers Layered puts around a provider.
type Layers struct {
	Retries       int
	RatePerSecond float64
	Burst         int
	CacheSize     int // 0 disables the cache
	StatsWindow   time.Duration
	Backoff       func(attempt int) time.Duration // nil uses Backoff
	Log           *slog.Logger
}

// Layered builds the call path shared by every chain, outermost first:
// cache, 429 retries, rate limiter, stats, provider. A cache hit takes no
// limiter token and records no latency. Every provider attempt, retries
// included, waits on the limiter.
func Layered(provider Client, l Layers) (Client, *Instrumented, error) {
	instrumented := NewInstrumented(provider, l.Log, l.StatsWindow)
	retrying := NewRetrying(NewRateLimited(instrumented, l.RatePerSecond, l.Burst), l.Retries)
	if l.Backoff != nil {
		retrying.backoff = l.Backoff
	}
	if l.CacheSize <= 0 {
		return retrying, instrumented, nil
	}
	cached, err := NewCached(retrying, l.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	return cached, instrumented, nil
}
