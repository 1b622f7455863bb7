// Package tokenizer turns text into token counts for budget decisions.
package tokenizer

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter reports the token length of a piece of text. Implementations must
// be safe for concurrent use.
type Counter interface {
	Count(text string) int
}

// DefaultEncoding is used when no encoding or model is configured.
const DefaultEncoding = "cl100k_base"

// modelEncodings maps model name fragments to a tiktoken encoding. Models
// outside the OpenAI family are approximated with cl100k_base.
var modelEncodings = map[string]string{
	"gpt-4o":   "o200k_base",
	"gpt-oss":  "o200k_base",
	"o1":       "o200k_base",
	"o3":       "o200k_base",
	"gpt-4":    "cl100k_base",
	"gpt-3.5":  "cl100k_base",
	"claude":   "cl100k_base",
	"granite":  "cl100k_base",
	"llama":    "cl100k_base",
	"mistral":  "cl100k_base",
	"qwen":     "cl100k_base",
	"deepseek": "cl100k_base",
}

// EncodingForModel returns the encoding name used to count tokens for model.
func EncodingForModel(model string) string {
	lower := strings.ToLower(model)
	if enc, ok := tiktoken.MODEL_TO_ENCODING[lower]; ok {
		return enc
	}
	best := ""
	for frag := range modelEncodings {
		// Longest fragment wins so "gpt-4o" beats "gpt-4".
		if strings.Contains(lower, frag) && len(frag) > len(best) {
			best = frag
		}
	}
	if best != "" {
		return modelEncodings[best]
	}
	return DefaultEncoding
}

// Tiktoken counts tokens with a BPE encoding.
type Tiktoken struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
	// Name is the encoding name, e.g. "cl100k_base".
	Name string
}

// New loads the named encoding. An empty name selects DefaultEncoding.
func New(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc, Name: encoding}, nil
}

// Count returns the number of BPE tokens in text.
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	// The encoder keeps an internal cache that is not safe for concurrent use.
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.enc.Encode(text, nil, nil))
}

// Words estimates tokens from the word count (about 1.33 tokens per word).
// It needs no rank data and is used when an encoding cannot be loaded.
type Words struct{}

// Count implements Counter.
func (Words) Count(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// NewOrFallback loads encoding and falls back to Words on failure, logging
// the reason. The BPE rank files are fetched on first use, so offline hosts
// take the fallback.
func NewOrFallback(encoding string, log *slog.Logger) Counter {
	t, err := New(encoding)
	if err != nil {
		log.Warn("tokenizer unavailable, using word estimate", "encoding", encoding, "error", err)
		return Words{}
	}
	return t
}

// Sum adds the token counts of every text.
func Sum(c Counter, texts []string) int {
	total := 0
	for _, s := range texts {
		total += c.Count(s)
	}
	return total
}
