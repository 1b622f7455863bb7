package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	DataDir string

	// LLM provider
	LLMProvider     string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OllamaHost      string
	MaxOutputTokens int

	// Models. Chain-specific models fall back to the small/large tier.
	SmallModel     string
	LargeModel     string
	MapModel       string
	ReduceModel    string
	FinalModel     string
	ExecutiveModel string

	// Token budgets
	MapTokenBudget    int
	FinalTokenBudget  int
	MinSummaryTokens  int
	TokenizerEncoding string

	// LLM call shaping
	RateLimitPerSecond float64
	RateLimitBurst     int
	MaxConcurrentCalls int
	CacheSize          int

	// Embeddings for the chunk store
	EmbeddingProvider string
	EmbeddingModel    string

	// Worker pool
	WorkerCount    int
	MaxQueueSize   int
	MaxRunAttempts int

	// Upload limits
	MaxUploadBytes int64

	// Chunking defaults
	DefaultChunkSize int

	// Job state
	JobTTL time.Duration
}

// defaultModels holds the small and large model of each provider.
var defaultModels = map[string][2]string{
	"anthropic": {"claude-haiku-4-5", "claude-sonnet-4-5"},
	"openai":    {"gpt-4o-mini", "gpt-4o"},
	"ollama":    {"llama3.2", "llama3.1:70b"},
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:    envOr("PORT", "8090"),
		DataDir: envOr("DATA_DIR", "data"),

		LLMProvider:     envOr("LLM_PROVIDER", "anthropic"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		OllamaHost:      envOr("OLLAMA_HOST", "http://localhost:11434"),
		MaxOutputTokens: envInt("MAX_OUTPUT_TOKENS", 4096),

		SmallModel:     os.Getenv("SMALL_MODEL"),
		LargeModel:     os.Getenv("LARGE_MODEL"),
		MapModel:       os.Getenv("MAP_MODEL"),
		ReduceModel:    os.Getenv("REDUCE_MODEL"),
		FinalModel:     os.Getenv("FINAL_MODEL"),
		ExecutiveModel: os.Getenv("EXECUTIVE_MODEL"),

		MapTokenBudget:    envInt("MAP_TOKEN_BUDGET", 8192),
		FinalTokenBudget:  envInt("FINAL_TOKEN_BUDGET", 16384),
		MinSummaryTokens:  envInt("MIN_SUMMARY_TOKENS", 128),
		TokenizerEncoding: envOr("TOKENIZER_ENCODING", "o200k_base"),

		RateLimitPerSecond: envFloat("LLM_RATE_PER_SECOND", 8),
		RateLimitBurst:     envInt("LLM_RATE_BURST", 20),
		MaxConcurrentCalls: envInt("MAX_CONCURRENT_CALLS", 0),
		CacheSize:          envInt("LLM_CACHE_SIZE", 0),

		EmbeddingProvider: envOr("EMBEDDING_PROVIDER", "local"),
		EmbeddingModel:    os.Getenv("EMBEDDING_MODEL"),

		WorkerCount:    envInt("WORKER_COUNT", 4),
		MaxQueueSize:   envInt("MAX_QUEUE_SIZE", 100),
		MaxRunAttempts: envInt("MAX_RUN_ATTEMPTS", 3),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		DefaultChunkSize: envInt("DEFAULT_CHUNK_SIZE", 1500),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if tiers, ok := defaultModels[cfg.LLMProvider]; ok {
		if cfg.SmallModel == "" {
			cfg.SmallModel = tiers[0]
		}
		if cfg.LargeModel == "" {
			cfg.LargeModel = tiers[1]
		}
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxRunAttempts <= 0 {
		cfg.MaxRunAttempts = 1
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 1500
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required")
		}
	case "openai":
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return errors.New("OPENAI_API_KEY or OPENAI_BASE_URL is required")
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.SmallModel == "" || c.LargeModel == "" {
		return errors.New("SMALL_MODEL and LARGE_MODEL are required")
	}
	if c.MinSummaryTokens <= 0 || c.MapTokenBudget <= c.MinSummaryTokens {
		return fmt.Errorf("MAP_TOKEN_BUDGET (%d) must exceed MIN_SUMMARY_TOKENS (%d)", c.MapTokenBudget, c.MinSummaryTokens)
	}
	if c.FinalTokenBudget <= 0 {
		return fmt.Errorf("FINAL_TOKEN_BUDGET must be positive, got %d", c.FinalTokenBudget)
	}
	if c.EmbeddingProvider == "openai" && c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required for openai embeddings")
	}
	return nil
}

// DocumentDir holds the markdown rendering of every document.
func (c Config) DocumentDir() string { return filepath.Join(c.DataDir, "documents") }

// ChunkDBDir holds the persistent chunk collection.
func (c Config) ChunkDBDir() string { return filepath.Join(c.DataDir, "chroma") }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
