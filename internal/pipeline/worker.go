package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/docsum/internal/llm"
	"github.com/dgallion1/docsum/internal/summarize"
)

// stepProgress is the progress reported once a step completes.
var stepProgress = map[summarize.Step]int{
	summarize.StepLoadMarkdown: 30,
	summarize.StepExecutive:    95,
	summarize.StepGetChunks:    25,
	summarize.StepSplit:        30,
	summarize.StepMap:          55,
	summarize.StepReduce:       70,
	summarize.StepValidate:     75,
	summarize.StepCollapse:     80,
	summarize.StepFinalize:     95,
}

// Worker processes a single summary job.
type Worker struct {
	workflow    *summarize.Workflow
	log         *slog.Logger
	maxAttempts int
	backoff     func(attempt int) time.Duration
}

func NewWorker(workflow *summarize.Workflow, log *slog.Logger, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Worker{
		workflow:    workflow,
		log:         log,
		maxAttempts: maxAttempts,
		backoff:     llm.Backoff,
	}
}

// Process runs the workflow for a job, repeating the whole run when it fails
// with a retryable model error.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "mode", string(job.Mode))

	job.SetStatus(StatusInitializing, "initializing")
	job.Advance(10, "initializing")

	wf := w.workflow.With(
		summarize.WithLogger(log),
		summarize.WithObserver(func(step summarize.Step, st *summarize.State) {
			if step == summarize.StepGetChunks {
				job.SetChunks(len(st.Chunks))
			}
			job.Advance(stepProgress[step], step.String())
		}),
	)

	var (
		st  *summarize.State
		err error
	)
	for attempt := range w.maxAttempts {
		n := job.StartAttempt()
		job.SetStatus(StatusProcessing, "processing")
		job.Advance(20, "processing")

		st, err = wf.Run(ctx, job.Request())
		if err == nil || !IsRetryable(err) || attempt == w.maxAttempts-1 {
			break
		}

		delay := w.backoff(attempt)
		log.Warn("retryable summarization error", "attempt", n, "delay_ms", delay.Milliseconds(), "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			err = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}

	if err != nil {
		job.Fail(err)
		log.Error("summary job failed", "attempts", job.Snapshot().Attempts, "kind", ErrorKind(err), "error", err)
		return
	}

	job.Complete(st)
	snap := job.Snapshot()
	log.Info("summary job completed",
		"attempts", snap.Attempts,
		"chunks", snap.Result.Chunks,
		"collapse_level", snap.Result.CollapseLevel,
		"summary_chars", len(snap.Result.Summary),
	)
}
