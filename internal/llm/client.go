// Package llm provides language-model clients for the summarization chains,
// plus wrappers for rate limiting, caching and latency statistics.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Client completes a single-turn prompt with the named model.
type Client interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// ErrRateLimited is returned when the provider rejected a call with 429.
var ErrRateLimited = errors.New("rate limited")

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// classify wraps provider failures by HTTP status. Rate limits and server
// errors become RetryableError; everything else is returned as is.
func classify(provider string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &RetryableError{StatusCode: status, Message: err.Error(), Err: fmt.Errorf("%s: %w", provider, ErrRateLimited)}
	case status >= 500:
		return &RetryableError{StatusCode: status, Message: err.Error(), Err: err}
	}
	return fmt.Errorf("%s: %w", provider, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Options are shared by every provider.
type Options struct {
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// New builds the client for provider.
func New(provider string, opts Options) (Client, error) {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	switch provider {
	case ProviderAnthropic:
		return NewAnthropic(opts), nil
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	case ProviderOllama:
		return NewOllama(opts)
	}
	return nil, fmt.Errorf("unknown llm provider %q", provider)
}
