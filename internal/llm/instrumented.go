package llm

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Instrumented records latency per model and logs failed calls.
type Instrumented struct {
	next   Client
	log    *slog.Logger
	maxAge time.Duration

	mu      sync.Mutex
	all     *Stats
	byModel map[string]*Stats
}

func NewInstrumented(next Client, log *slog.Logger, window time.Duration) *Instrumented {
	return &Instrumented{
		next:    next,
		log:     log,
		maxAge:  window,
		all:     NewStats(window),
		byModel: make(map[string]*Stats),
	}
}

func (i *Instrumented) Complete(ctx context.Context, prompt, model string) (string, error) {
	start := time.Now()
	out, err := i.next.Complete(ctx, prompt, model)
	elapsed := time.Since(start).Milliseconds()

	failed := err != nil
	i.all.Record(elapsed, failed)
	i.modelStats(model).Record(elapsed, failed)

	if err != nil && ctx.Err() == nil {
		i.log.Warn("llm call failed", "model", model, "duration_ms", elapsed, "retryable", IsRetryable(err), "error", err)
	} else if err == nil {
		i.log.Debug("llm call", "model", model, "duration_ms", elapsed, "prompt_bytes", len(prompt), "output_bytes", len(out))
	}
	return out, err
}

func (i *Instrumented) modelStats(model string) *Stats {
	i.mu.Lock()
	defer i.mu.Unlock()
	s, ok := i.byModel[model]
	if !ok {
		s = NewStats(i.maxAge)
		i.byModel[model] = s
	}
	return s
}

// Snapshot returns aggregate stats and stats per model.
func (i *Instrumented) Snapshot() (StatsSnapshot, map[string]StatsSnapshot) {
	i.mu.Lock()
	models := make(map[string]*Stats, len(i.byModel))
	for k, v := range i.byModel {
		models[k] = v
	}
	i.mu.Unlock()

	per := make(map[string]StatsSnapshot, len(models))
	for k, v := range models {
		per[k] = v.Snapshot()
	}
	return i.all.Snapshot(), per
}
