package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docsum/internal/tokenizer"
)

// ChunkSource returns a document's stored chunks in order. An unknown
// document yields an error wrapping ErrNotFound or an empty slice.
type ChunkSource interface {
	Chunks(ctx context.Context, documentID string) ([]StoredChunk, error)
}

// MarkdownSource returns a document's raw text. An unknown document yields
// an error wrapping ErrNotFound.
type MarkdownSource interface {
	Markdown(ctx context.Context, documentID string) (string, error)
}

// Budgets are the token limits of a detailed run.
type Budgets struct {
	Map   int // largest fragment sent to the map chain
	Final int // largest total of chunk summaries sent to the final chain
	Min   int // fragments shorter than this skip the map chain
}

// DefaultBudgets returns the limits used when none are configured.
func DefaultBudgets() Budgets {
	return Budgets{Map: 8192, Final: 16384, Min: 128}
}

// Observer is called by the run after each completed step.
type Observer func(step Step, st *State)

// Option configures a Workflow.
type Option func(*Workflow)

// WithBudgets overrides DefaultBudgets. Non-positive fields keep the default.
func WithBudgets(b Budgets) Option {
	return func(w *Workflow) {
		if b.Map > 0 {
			w.budgets.Map = b.Map
		}
		if b.Final > 0 {
			w.budgets.Final = b.Final
		}
		if b.Min > 0 {
			w.budgets.Min = b.Min
		}
	}
}

// WithMaxConcurrency caps in-flight chain calls per step. Zero means no cap.
func WithMaxConcurrency(n int) Option {
	return func(w *Workflow) { w.maxConcurrency = n }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(log *slog.Logger) Option {
	return func(w *Workflow) { w.log = log }
}

// WithObserver registers a step observer.
func WithObserver(o Observer) Option {
	return func(w *Workflow) { w.observer = o }
}

// Workflow runs summarizations. It holds no per-run state and is safe for
// concurrent use.
type Workflow struct {
	store          ChunkSource
	docs           MarkdownSource
	chains         *Chains
	counter        tokenizer.Counter
	budgets        Budgets
	maxConcurrency int
	log            *slog.Logger
	observer       Observer
}

// NewWorkflow creates a Workflow.
func NewWorkflow(store ChunkSource, docs MarkdownSource, chains *Chains, counter tokenizer.Counter, opts ...Option) *Workflow {
	w := &Workflow{
		store:   store,
		docs:    docs,
		chains:  chains,
		counter: counter,
		budgets: DefaultBudgets(),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// With returns a copy of w with opts applied. The receiver is unchanged.
func (w *Workflow) With(opts ...Option) *Workflow {
	cp := *w
	for _, o := range opts {
		o(&cp)
	}
	return &cp
}

// Budgets reports the limits in use.
func (w *Workflow) Budgets() Budgets { return w.budgets }

// Run executes one summarization. The returned state is never nil and holds
// either FinalSummary or Error. The error is non-nil exactly when
// State.Error is set.
func (w *Workflow) Run(ctx context.Context, req Request) (*State, error) {
	st := newState(req)
	log := w.log.With("document_id", req.DocumentID, "mode", string(req.Mode))
	start := time.Now()

	step, err := entry(req)
	if err != nil {
		return w.fail(st, log, err)
	}
	log.Info("summarization started")

	for step != StepDone {
		if err := ctx.Err(); err != nil {
			return w.fail(st, log, stepErr(step, err, err))
		}
		st.Trace = append(st.Trace, step)
		next, err := w.exec(ctx, step, st, log)
		if err != nil {
			return w.fail(st, log, err)
		}
		if w.observer != nil {
			w.observer(step, st)
		}
		step = next
	}

	log.Info("summarization completed",
		"steps", len(st.Trace),
		"reduce_passes", st.ReducePasses,
		"collapse_level", st.CollapseLevel.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return st, nil
}

func entry(req Request) (Step, error) {
	if req.DocumentID == "" {
		return "", stepErr(StepStart, ErrInvalidState, fmt.Errorf("%w: document id is required", ErrInvalidState))
	}
	switch req.Mode {
	case ModeExecutive:
		return StepLoadMarkdown, nil
	case ModeDetailed:
		return StepGetChunks, nil
	}
	return "", stepErr(StepStart, ErrInvalidState, fmt.Errorf("%w: unknown mode %q", ErrInvalidState, req.Mode))
}

// exec runs one step and returns its successor.
func (w *Workflow) exec(ctx context.Context, step Step, st *State, log *slog.Logger) (Step, error) {
	switch step {
	case StepLoadMarkdown:
		return w.loadMarkdown(ctx, st, log)
	case StepExecutive:
		return w.generateExecutive(ctx, st, log)
	case StepGetChunks:
		return w.getChunks(ctx, st, log)
	case StepSplit:
		return w.split(ctx, st, log)
	case StepMap:
		return w.mapFragments(ctx, st, log)
	case StepReduce:
		return w.reduce(ctx, st, log)
	case StepValidate:
		return w.validate(ctx, st, log)
	case StepCollapse:
		return w.collapse(ctx, st, log)
	case StepFinalize:
		return w.finalize(ctx, st, log)
	}
	return "", stepErr(step, ErrInvalidState, fmt.Errorf("%w: unknown step %q", ErrInvalidState, step))
}

func (w *Workflow) fail(st *State, log *slog.Logger, err error) (*State, error) {
	var se *StepError
	if !errors.As(err, &se) {
		se = stepErr(StepStart, ErrInvalidState, err)
	}
	msg := se.Error()
	st.Error = &msg
	st.FinalSummary = nil
	log.Error("summarization failed", "step", se.Step.String(), "kind", se.Kind, "error", se.Err)
	return st, se
}
