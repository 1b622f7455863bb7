package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// DefaultOllamaHost is used when no base URL is configured.
const DefaultOllamaHost = "http://localhost:11434"

// Ollama calls a local Ollama server.
type Ollama struct {
	client *ollama.Client
	opts   Options
}

func NewOllama(opts Options) (*Ollama, error) {
	host := opts.BaseURL
	if host == "" {
		host = DefaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	c := ollama.NewClient(u, &http.Client{Timeout: 10 * time.Minute})
	return &Ollama{client: c, opts: opts}, nil
}

func (o *Ollama) Complete(ctx context.Context, prompt, model string) (string, error) {
	stream := false
	req := &ollama.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": o.opts.Temperature,
			"num_predict": o.opts.MaxTokens,
		},
	}

	var text strings.Builder
	err := o.client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	})
	if err != nil {
		var statusErr ollama.StatusError
		if errors.As(err, &statusErr) {
			return "", classify("ollama", statusErr.StatusCode, err)
		}
		return "", fmt.Errorf("ollama: %w", err)
	}
	return text.String(), nil
}
