package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	ollama "github.com/ollama/ollama/api"
	"github.com/philippgille/chromem-go"
	"github.com/sashabaranov/go-openai"
)

// Embedding providers accepted by NewEmbeddingFunc.
const (
	EmbedOllama = "ollama"
	EmbedOpenAI = "openai"
	EmbedLocal  = "local"
)

// EmbedConfig selects and configures the embedding backend.
type EmbedConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewEmbeddingFunc returns the chromem embedding function for cfg.
func NewEmbeddingFunc(cfg EmbedConfig) (chromem.EmbeddingFunc, error) {
	switch cfg.Provider {
	case EmbedOllama:
		return ollamaEmbedding(cfg)
	case EmbedOpenAI:
		return openAIEmbedding(cfg), nil
	case EmbedLocal, "":
		return LocalEmbedding(256), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}

func ollamaEmbedding(cfg EmbedConfig) (chromem.EmbeddingFunc, error) {
	host := cfg.BaseURL
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	cli := ollama.NewClient(u, &http.Client{Timeout: 60 * time.Second})

	return func(ctx context.Context, text string) ([]float32, error) {
		res, err := cli.Embed(ctx, &ollama.EmbedRequest{Model: model, Input: text})
		if err != nil {
			return nil, fmt.Errorf("ollama embed: %w", err)
		}
		if res == nil || len(res.Embeddings) == 0 || len(res.Embeddings[0]) == 0 {
			return nil, errors.New("ollama embed: empty embedding")
		}
		return res.Embeddings[0], nil
	}, nil
}

func openAIEmbedding(cfg EmbedConfig) chromem.EmbeddingFunc {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	cli := openai.NewClientWithConfig(oc)
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(model),
			Input: []string{text},
		})
		if err != nil {
			return nil, fmt.Errorf("openai embed: %w", err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return nil, errors.New("openai embed: empty embedding")
		}
		return resp.Data[0].Embedding, nil
	}
}

// LocalEmbedding hashes lowercased words into a normalized vector of dims
// buckets. It needs no external service.
func LocalEmbedding(dims int) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dims)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			h.Write([]byte(w))
			vec[h.Sum32()%uint32(dims)]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			vec[0] = 1
			return vec, nil
		}
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
		return vec, nil
	}
}
