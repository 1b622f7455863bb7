package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docsum/internal/splitter"
	"github.com/dgallion1/docsum/internal/tokenizer"
)

// Step names a node of the workflow graph.
type Step string

const (
	StepStart        Step = "start"
	StepLoadMarkdown Step = "load_markdown"
	StepExecutive    Step = "generate_executive"
	StepGetChunks    Step = "get_chunks"
	StepSplit        Step = "split"
	StepMap          Step = "map"
	StepReduce       Step = "reduce"
	StepValidate     Step = "validate"
	StepCollapse     Step = "collapse"
	StepFinalize     Step = "finalize"
	StepDone         Step = "done"
)

func (s Step) String() string { return string(s) }

// loadMarkdown reads the raw document for the executive path.
func (w *Workflow) loadMarkdown(ctx context.Context, st *State, _ *slog.Logger) (Step, error) {
	md, err := w.docs.Markdown(ctx, st.DocumentID)
	if err != nil {
		return "", stepErr(StepLoadMarkdown, ErrUnavailable, err)
	}
	if strings.TrimSpace(md) == "" {
		return "", stepErr(StepLoadMarkdown, ErrInvalidState,
			fmt.Errorf("%w: document %s has no text", ErrInvalidState, st.DocumentID))
	}
	st.MarkdownContent = &md
	return StepExecutive, nil
}

func (w *Workflow) generateExecutive(ctx context.Context, st *State, log *slog.Logger) (Step, error) {
	out, err := w.chains.Executive(ctx, *st.MarkdownContent, st.Query())
	if err != nil {
		return "", stepErr(StepExecutive, ErrModel, err)
	}
	st.FinalSummary = &out
	log.Info("executive summary generated", "input_tokens", w.counter.Count(*st.MarkdownContent), "summary_tokens", w.counter.Count(out))
	return StepDone, nil
}

func (w *Workflow) getChunks(ctx context.Context, st *State, log *slog.Logger) (Step, error) {
	stored, err := w.store.Chunks(ctx, st.DocumentID)
	if err != nil {
		return "", stepErr(StepGetChunks, ErrUnavailable, err)
	}
	if len(stored) == 0 {
		return "", stepErr(StepGetChunks, ErrNotFound,
			fmt.Errorf("no chunks indexed for document %s: %w", st.DocumentID, ErrNotFound))
	}
	st.Chunks = make([]Chunk, len(stored))
	for i, sc := range stored {
		st.Chunks[i] = Chunk{Text: sc.Text, SectionID: sc.SectionID}
	}
	st.CollapseLevel = LevelNone
	log.Info("chunks loaded", "chunks", len(stored))
	return StepSplit, nil
}

// split fills every chunk's fragments. Chunks within the map budget keep
// their text as a single fragment.
func (w *Workflow) split(_ context.Context, st *State, log *slog.Logger) (Step, error) {
	oversized := 0
	for i := range st.Chunks {
		st.Chunks[i].SubChunks = SplitChunk(st.Chunks[i], w.budgets.Map, w.counter)
		if len(st.Chunks[i].SubChunks) > 1 {
			oversized++
		}
	}
	log.Info("chunks split", "sub_chunks", st.SubChunkCount(), "oversized_chunks", oversized, "map_budget", w.budgets.Map)
	return StepMap, nil
}

// SplitChunk cuts a chunk's text into fragments of at most budget tokens.
// The result is never empty.
func SplitChunk(c Chunk, budget int, counter tokenizer.Counter) []SubChunk {
	parts := splitter.Split(c.Text, budget, counter)
	if len(parts) == 0 {
		return []SubChunk{{Text: c.Text}}
	}
	subs := make([]SubChunk, len(parts))
	for i, p := range parts {
		subs[i] = SubChunk{Text: p}
	}
	return subs
}

type fragmentRef struct{ chunk, sub int }

// mapFragments summarizes every fragment at or above the minimum length.
// Shorter fragments carry their text through unchanged.
func (w *Workflow) mapFragments(ctx context.Context, st *State, log *slog.Logger) (Step, error) {
	var pending []fragmentRef
	for ci := range st.Chunks {
		for si, sub := range st.Chunks[ci].SubChunks {
			if w.counter.Count(sub.Text) < w.budgets.Min {
				continue
			}
			pending = append(pending, fragmentRef{ci, si})
		}
	}

	query := st.Query()
	results, err := w.fanOut(ctx, len(pending), func(ctx context.Context, i int) (string, error) {
		ref := pending[i]
		return w.chains.Map(ctx, st.Chunks[ref.chunk].SubChunks[ref.sub].Text, query)
	})
	if err != nil {
		return "", stepErr(StepMap, ErrModel, err)
	}

	for ci := range st.Chunks {
		for si := range st.Chunks[ci].SubChunks {
			sub := &st.Chunks[ci].SubChunks[si]
			sub.Summary = strPtr(sub.Text)
		}
	}
	for i, ref := range pending {
		st.Chunks[ref.chunk].SubChunks[ref.sub].Summary = strPtr(results[i])
	}
	log.Info("map complete", "summarized", len(pending), "passed_through", st.SubChunkCount()-len(pending))
	return StepReduce, nil
}

// reduce merges each chunk's fragment summaries. Before any collapse a chunk
// with one fragment takes that fragment's summary as is.
func (w *Workflow) reduce(ctx context.Context, st *State, log *slog.Logger) (Step, error) {
	st.ReducePasses++

	var pending []int
	for ci, c := range st.Chunks {
		if len(c.SubChunks) == 0 {
			return "", stepErr(StepReduce, ErrInvalidState,
				fmt.Errorf("%w: chunk %d has no fragments", ErrInvalidState, ci))
		}
		if st.CollapseLevel == LevelNone && len(c.SubChunks) == 1 {
			continue
		}
		pending = append(pending, ci)
	}

	query := st.Query()
	results, err := w.fanOut(ctx, len(pending), func(ctx context.Context, i int) (string, error) {
		return w.chains.Reduce(ctx, digests(st.Chunks[pending[i]].SubChunks), query)
	})
	if err != nil {
		return "", stepErr(StepReduce, ErrModel, err)
	}

	for ci := range st.Chunks {
		if st.CollapseLevel == LevelNone && len(st.Chunks[ci].SubChunks) == 1 {
			st.Chunks[ci].Summary = strPtr(st.Chunks[ci].SubChunks[0].Digest())
		}
	}
	for i, ci := range pending {
		st.Chunks[ci].Summary = strPtr(results[i])
	}
	log.Info("reduce complete", "pass", st.ReducePasses, "level", st.CollapseLevel.String(), "chunks", len(st.Chunks), "model_calls", len(pending))
	return StepValidate, nil
}

func digests(subs []SubChunk) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.Digest()
	}
	return out
}

// validate decides between finalizing and collapsing.
func (w *Workflow) validate(_ context.Context, st *State, log *slog.Logger) (Step, error) {
	total := tokenizer.Sum(w.counter, st.Summaries())
	switch {
	case total <= w.budgets.Final:
		log.Info("summaries fit final budget", "tokens", total, "final_budget", w.budgets.Final, "level", st.CollapseLevel.String())
		return StepFinalize, nil
	case st.CollapseLevel >= LevelIgnore:
		log.Warn("finalizing over budget", "error", ErrBudgetExceededAtIgnoreLevel, "tokens", total, "final_budget", w.budgets.Final)
		return StepFinalize, nil
	default:
		log.Info("summaries exceed final budget", "tokens", total, "final_budget", w.budgets.Final, "level", st.CollapseLevel.String())
		return StepCollapse, nil
	}
}

func (w *Workflow) collapse(_ context.Context, st *State, log *slog.Logger) (Step, error) {
	before := len(st.Chunks)
	prev := st.CollapseLevel
	st.Chunks, st.CollapseLevel = Collapse(st.Chunks, st.CollapseLevel)
	log.Info("chunks collapsed", "from_level", prev.String(), "to_level", st.CollapseLevel.String(), "chunks_before", before, "chunks_after", len(st.Chunks))
	return StepReduce, nil
}

func (w *Workflow) finalize(ctx context.Context, st *State, log *slog.Logger) (Step, error) {
	summaries := st.Summaries()
	out, err := w.chains.Final(ctx, summaries, st.Query())
	if err != nil {
		return "", stepErr(StepFinalize, ErrModel, err)
	}
	st.FinalSummary = &out
	log.Info("final summary generated", "inputs", len(summaries), "summary_tokens", w.counter.Count(out))
	return StepDone, nil
}

// fanOut runs fn for 0..n-1 concurrently and returns results by index. The
// first failure cancels the rest and no results are returned.
func (w *Workflow) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int) (string, error)) ([]string, error) {
	results := make([]string, n)
	if n == 0 {
		return results, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	if w.maxConcurrency > 0 {
		g.SetLimit(w.maxConcurrency)
	}
	for i := range n {
		g.Go(func() error {
			out, err := fn(gctx, i)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
