package summarize

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// words counts one token per whitespace-separated word.
type words struct{}

func (words) Count(s string) int { return len(strings.Fields(s)) }

func repeatWords(n int, w string) string {
	return strings.TrimSpace(strings.Repeat(w+" ", n))
}

// fakeLLM answers by model name and records every call.
type fakeLLM struct {
	mu      sync.Mutex
	calls   map[string]int
	prompts []string
	respond func(ctx context.Context, prompt, model string) (string, error)
}

func newFakeLLM(respond func(ctx context.Context, prompt, model string) (string, error)) *fakeLLM {
	return &fakeLLM{calls: map[string]int{}, respond: respond}
}

func (f *fakeLLM) Complete(ctx context.Context, prompt, model string) (string, error) {
	f.mu.Lock()
	f.calls[model]++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(ctx, prompt, model)
}

func (f *fakeLLM) count(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[model]
}

func (f *fakeLLM) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// fixedSizes returns outputs of a given word count per chain.
func fixedSizes(mapWords, reduceWords int) func(context.Context, string, string) (string, error) {
	return func(_ context.Context, _ string, model string) (string, error) {
		switch model {
		case "map":
			return repeatWords(mapWords, "m"), nil
		case "reduce":
			return repeatWords(reduceWords, "r"), nil
		case "final":
			return "final summary", nil
		case "exec":
			return "executive summary", nil
		}
		return "", fmt.Errorf("unexpected model %q", model)
	}
}

var testModels = ChainModels{Map: "map", Reduce: "reduce", Final: "final", Executive: "exec"}

type memChunks struct {
	docs  map[string][]StoredChunk
	calls int
	mu    sync.Mutex
}

func (m *memChunks) Chunks(_ context.Context, id string) ([]StoredChunk, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	cs, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return cs, nil
}

type memDocs map[string]string

func (m memDocs) Markdown(_ context.Context, id string) (string, error) {
	md, ok := m[id]
	if !ok {
		return "", fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return md, nil
}

func newTestWorkflow(store ChunkSource, docs MarkdownSource, llm LLM, opts ...Option) *Workflow {
	return NewWorkflow(store, docs, NewChains(llm, testModels), words{}, opts...)
}
