package pipeline

import (
	"errors"

	"github.com/dgallion1/docsum/internal/llm"
	"github.com/dgallion1/docsum/internal/summarize"
)

// IsRetryable reports whether a failed run is worth repeating: a chain call
// failed with a transient provider error. Missing documents and invalid
// requests fail at once.
func IsRetryable(err error) bool {
	return errors.Is(err, summarize.ErrModel) && llm.IsRetryable(err)
}
