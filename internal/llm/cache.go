package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached remembers completions by model and prompt. Failed calls are not
// cached.
type Cached struct {
	next  Client
	cache *lru.Cache[string, string]
}

func NewCached(next Client, size int) (*Cached, error) {
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c}, nil
}

func (c *Cached) Complete(ctx context.Context, prompt, model string) (string, error) {
	key := cacheKey(prompt, model)
	if out, ok := c.cache.Get(key); ok {
		return out, nil
	}
	out, err := c.next.Complete(ctx, prompt, model)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, out)
	return out, nil
}

// Len is the number of cached completions.
func (c *Cached) Len() int { return c.cache.Len() }

func cacheKey(prompt, model string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
