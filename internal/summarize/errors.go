package summarize

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrNotFound means the document or its chunks are missing.
	ErrNotFound = errors.New("not found")
	// ErrModel means a chain invocation failed. The whole run may be retried.
	ErrModel = errors.New("model error")
	// ErrBudgetExceededAtIgnoreLevel reports summaries over the final budget
	// after the last collapse. Runs still finalize when it is observed.
	ErrBudgetExceededAtIgnoreLevel = errors.New("summaries exceed final budget at ignore level")
	// ErrInvalidState means the request cannot be run as given.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable means a store failed for a reason other than a missing
	// document.
	ErrUnavailable = errors.New("store unavailable")
)

// StepError is the failure recorded by a run.
type StepError struct {
	Step Step
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	if e.Err == nil || errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %v", e.Step, errOr(e.Err, e.Kind))
	}
	return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause.
func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func errOr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}

// stepErr wraps err as a StepError. The kind is taken from err when it
// already carries one, otherwise fallback is used.
func stepErr(step Step, fallback, err error) *StepError {
	kind := fallback
	for _, k := range []error{context.Canceled, context.DeadlineExceeded, ErrNotFound, ErrInvalidState, ErrBudgetExceededAtIgnoreLevel, ErrModel, ErrUnavailable} {
		if errors.Is(err, k) {
			kind = k
			break
		}
	}
	return &StepError{Step: step, Kind: kind, Err: err}
}
