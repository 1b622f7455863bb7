// Package summarize produces length-bounded document summaries. An executive
// run summarizes the whole document in one call. A detailed run maps every
// chunk fragment, reduces fragments per chunk, and collapses chunks into
// coarser section groups until the summaries fit the final budget.
package summarize

import "fmt"

// SubChunk is a budget-safe fragment of a Chunk.
type SubChunk struct {
	Text    string
	Summary *string
}

// Digest returns the text the reduce step reads for this fragment.
func (s SubChunk) Digest() string {
	if s.Summary != nil {
		return *s.Summary
	}
	return s.Text
}

// Chunk is a retrieval unit of a document, or after a collapse a synthetic
// unit built from the summaries of the chunks it replaces.
type Chunk struct {
	Text      string
	Summary   *string
	SubChunks []SubChunk
	SectionID string
}

// StoredChunk is a chunk as returned by the chunk store.
type StoredChunk struct {
	Text      string
	SectionID string
}

// CollapseLevel is the grouping granularity of a detailed run. Levels only
// move forward; LevelIgnore ends the run.
type CollapseLevel int

const (
	LevelNone CollapseLevel = iota
	LevelSubsection
	LevelSection
	LevelIgnore
)

func (l CollapseLevel) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelSubsection:
		return "subsection"
	case LevelSection:
		return "section"
	case LevelIgnore:
		return "ignore"
	}
	return fmt.Sprintf("CollapseLevel(%d)", int(l))
}

// Next returns the following level. LevelIgnore is absorbing.
func (l CollapseLevel) Next() CollapseLevel {
	if l >= LevelIgnore {
		return LevelIgnore
	}
	return l + 1
}

// Mode selects the execution path of a run.
type Mode string

const (
	ModeExecutive Mode = "executive"
	ModeDetailed  Mode = "detailed"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeExecutive, ModeDetailed:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: unknown summarization type %q", ErrInvalidState, s)
}

// Request starts a run.
type Request struct {
	DocumentID string
	Mode       Mode
	UserQuery  *string
}

// State is the record threaded through one run. It is owned by that run and
// never shared.
type State struct {
	DocumentID      string
	Mode            Mode
	UserQuery       *string
	Chunks          []Chunk
	MarkdownContent *string
	FinalSummary    *string
	Error           *string
	CollapseLevel   CollapseLevel

	// Trace lists the steps executed, in order.
	Trace []Step
	// ReducePasses counts executions of the reduce step.
	ReducePasses int
}

func newState(req Request) *State {
	return &State{
		DocumentID:    req.DocumentID,
		Mode:          req.Mode,
		UserQuery:     req.UserQuery,
		Chunks:        []Chunk{},
		CollapseLevel: LevelNone,
	}
}

// Query returns the steering text, or "" when none was given.
func (s *State) Query() string {
	if s.UserQuery == nil {
		return ""
	}
	return *s.UserQuery
}

// Summaries returns the chunk summaries in document order. Chunks without a
// summary are skipped.
func (s *State) Summaries() []string {
	out := make([]string, 0, len(s.Chunks))
	for _, c := range s.Chunks {
		if c.Summary != nil {
			out = append(out, *c.Summary)
		}
	}
	return out
}

// SubChunkCount is the number of fragments across all chunks.
func (s *State) SubChunkCount() int {
	n := 0
	for _, c := range s.Chunks {
		n += len(c.SubChunks)
	}
	return n
}

func strPtr(s string) *string { return &s }
