package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// LLM completes a prompt with the named model. Rate limiting happens behind
// this interface.
type LLM interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// ChainModels selects the model used by each chain.
type ChainModels struct {
	Map       string
	Reduce    string
	Final     string
	Executive string
}

// TieredModels uses small for map and reduce and large for final and
// executive.
func TieredModels(small, large string) ChainModels {
	return ChainModels{Map: small, Reduce: small, Final: large, Executive: large}
}

// Chains holds the four text reduction functions.
type Chains struct {
	llm    LLM
	models ChainModels
}

// NewChains binds chains to a client and a model selection.
func NewChains(llm LLM, models ChainModels) *Chains {
	return &Chains{llm: llm, models: models}
}

// Models reports the configured selection.
func (c *Chains) Models() ChainModels { return c.models }

// Map summarizes one fragment.
func (c *Chains) Map(ctx context.Context, text, query string) (string, error) {
	return c.complete(ctx, "map", BuildMapPrompt(text, query), c.models.Map)
}

// Reduce merges the ordered summaries of one chunk.
func (c *Chains) Reduce(ctx context.Context, summaries []string, query string) (string, error) {
	return c.complete(ctx, "reduce", BuildReducePrompt(summaries, query), c.models.Reduce)
}

// Final merges all chunk summaries into the document summary.
func (c *Chains) Final(ctx context.Context, summaries []string, query string) (string, error) {
	return c.complete(ctx, "final", BuildFinalPrompt(summaries, query), c.models.Final)
}

// Executive summarizes a whole document in one call.
func (c *Chains) Executive(ctx context.Context, document, query string) (string, error) {
	return c.complete(ctx, "executive", BuildExecutivePrompt(document, query), c.models.Executive)
}

func (c *Chains) complete(ctx context.Context, chain, prompt, model string) (string, error) {
	out, err := c.llm.Complete(ctx, prompt, model)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s chain (%s): %w", ErrModel, chain, model, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: %s chain (%s): empty completion", ErrModel, chain, model)
	}
	return out, nil
}
