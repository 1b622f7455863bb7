package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docsum/internal/summarize"
)

// JobStatus represents the state of a summary job.
type JobStatus string

const (
	StatusQueued       JobStatus = "queued"
	StatusInitializing JobStatus = "initializing"
	StatusProcessing   JobStatus = "processing"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
)

// Job tracks the state of a single summarization.
type Job struct {
	mu sync.Mutex

	ID        string         `json:"job_id"`
	DocID     string         `json:"doc_id"`
	Mode      summarize.Mode `json:"summarization_type"`
	UserQuery string         `json:"user_query,omitempty"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Progress int       `json:"progress"`
	Attempts int       `json:"attempts"`

	Result    Result `json:"result"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Result is the outcome of a completed run.
type Result struct {
	Summary       string   `json:"summary,omitempty"`
	CollapseLevel string   `json:"collapse_level,omitempty"`
	Chunks        int      `json:"chunks"`
	SubChunks     int      `json:"sub_chunks"`
	ReducePasses  int      `json:"reduce_passes"`
	Steps         []string `json:"steps"`
}

// NewJob creates a queued job with a fresh id.
func NewJob(docID string, mode summarize.Mode, userQuery string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		DocID:     docID,
		Mode:      mode,
		UserQuery: userQuery,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Request is the workflow input for this job.
func (j *Job) Request() summarize.Request {
	req := summarize.Request{DocumentID: j.DocID, Mode: j.Mode}
	if j.UserQuery != "" {
		q := j.UserQuery
		req.UserQuery = &q
	}
	return req
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len is the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.finishedLocked() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) finishedLocked() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Finished reports whether the job reached a terminal status.
func (j *Job) Finished() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finishedLocked()
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Advance raises progress to pct. Progress never moves backwards, so a
// collapse loop or a retried run keeps the furthest value reached.
func (j *Job) Advance(pct int, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if pct > j.Progress {
		j.Progress = min(pct, 100)
	}
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// StartAttempt counts a run of the workflow and returns its number.
func (j *Job) StartAttempt() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Attempts++
	j.UpdatedAt = time.Now()
	return j.Attempts
}

// SetChunks records how many stored chunks the run started from.
func (j *Job) SetChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result.Chunks = n
	j.UpdatedAt = time.Now()
}

// Complete records a successful run.
func (j *Job) Complete(st *summarize.State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if st.FinalSummary != nil {
		j.Result.Summary = *st.FinalSummary
	}
	if st.Mode == summarize.ModeDetailed {
		j.Result.CollapseLevel = st.CollapseLevel.String()
	}
	j.Result.SubChunks = st.SubChunkCount()
	j.Result.ReducePasses = st.ReducePasses
	j.Result.Steps = traceNames(st.Trace)
	j.Error = ""
	j.ErrorKind = ""
	j.Status = StatusCompleted
	j.Phase = "done"
	j.Progress = 100
	j.UpdatedAt = time.Now()
}

// Fail records a failed run.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Error = err.Error()
	j.ErrorKind = ErrorKind(err)
	var se *summarize.StepError
	if errors.As(err, &se) {
		j.Phase = se.Step.String()
	}
	j.Result.Summary = ""
	j.Status = StatusFailed
	j.UpdatedAt = time.Now()
}

// ErrorKind names the class of a run failure for API clients.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, summarize.ErrNotFound):
		return "not_found"
	case errors.Is(err, summarize.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, summarize.ErrModel):
		return "model_error"
	case errors.Is(err, summarize.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrQueueFull):
		return "queue_full"
	}
	return "internal"
}

func traceNames(trace []summarize.Step) []string {
	out := make([]string, len(trace))
	for i, s := range trace {
		out[i] = s.String()
	}
	return out
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string         `json:"job_id"`
	DocID     string         `json:"doc_id"`
	Mode      summarize.Mode `json:"summarization_type"`
	UserQuery string         `json:"user_query,omitempty"`
	Status    JobStatus      `json:"status"`
	Phase     string         `json:"phase"`
	Progress  int            `json:"progress"`
	Attempts  int            `json:"attempts"`
	Result    Result         `json:"result"`
	Error     string         `json:"error,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	res := j.Result
	res.Steps = append([]string{}, j.Result.Steps...)
	return JobSnapshot{
		ID:        j.ID,
		DocID:     j.DocID,
		Mode:      j.Mode,
		UserQuery: j.UserQuery,
		Status:    j.Status,
		Phase:     j.Phase,
		Progress:  j.Progress,
		Attempts:  j.Attempts,
		Result:    res,
		Error:     j.Error,
		ErrorKind: j.ErrorKind,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
