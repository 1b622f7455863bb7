package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv keeps a developer's environment out of Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DATA_DIR", "LLM_PROVIDER", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
		"OPENAI_BASE_URL", "OLLAMA_HOST", "SMALL_MODEL", "LARGE_MODEL", "MAP_MODEL",
		"REDUCE_MODEL", "FINAL_MODEL", "EXECUTIVE_MODEL", "MAX_OUTPUT_TOKENS",
		"MAP_TOKEN_BUDGET", "FINAL_TOKEN_BUDGET", "MIN_SUMMARY_TOKENS", "TOKENIZER_ENCODING",
		"LLM_RATE_PER_SECOND", "LLM_RATE_BURST", "MAX_CONCURRENT_CALLS", "LLM_CACHE_SIZE",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "WORKER_COUNT", "MAX_QUEUE_SIZE",
		"MAX_RUN_ATTEMPTS", "MAX_UPLOAD_BYTES", "DEFAULT_CHUNK_SIZE", "JOB_TTL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	// Run from an empty directory so no .env file is picked up.
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "claude-haiku-4-5", cfg.SmallModel)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LargeModel)
	assert.Equal(t, 8192, cfg.MapTokenBudget)
	assert.Equal(t, 16384, cfg.FinalTokenBudget)
	assert.Equal(t, 128, cfg.MinSummaryTokens)
	assert.Equal(t, 8.0, cfg.RateLimitPerSecond)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, 3, cfg.MaxRunAttempts)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.Equal(t, filepath.Join("data", "documents"), cfg.DocumentDir())
	assert.Equal(t, filepath.Join("data", "chroma"), cfg.ChunkDBDir())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("LARGE_MODEL", "qwen2.5:32b")
	t.Setenv("MAP_TOKEN_BUDGET", "4096")
	t.Setenv("LLM_RATE_PER_SECOND", "2.5")
	t.Setenv("JOB_TTL", "15m")
	t.Setenv("WORKER_COUNT", "-1")

	cfg := Load()
	assert.Equal(t, "llama3.2", cfg.SmallModel)
	assert.Equal(t, "qwen2.5:32b", cfg.LargeModel)
	assert.Equal(t, 4096, cfg.MapTokenBudget)
	assert.Equal(t, 2.5, cfg.RateLimitPerSecond)
	assert.Equal(t, 15*time.Minute, cfg.JobTTL)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("FINAL_TOKEN_BUDGET", "lots")
	t.Setenv("JOB_TTL", "soon")
	cfg := Load()
	assert.Equal(t, 16384, cfg.FinalTokenBudget)
	assert.Equal(t, time.Hour, cfg.JobTTL)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("SMALL_MODEL=from-dotenv\nPORT=9999\n"), 0o644))
	t.Setenv("PORT", "7000")

	cfg := Load()
	assert.Equal(t, "from-dotenv", cfg.SmallModel)
	assert.Equal(t, "7000", cfg.Port)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	assert.ErrorContains(t, cfg.Validate(), "ANTHROPIC_API_KEY")

	cfg.AnthropicAPIKey = "sk"
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.LLMProvider = "bard"
	assert.ErrorContains(t, bad.Validate(), "unknown LLM_PROVIDER")

	bad = cfg
	bad.MapTokenBudget = 100
	assert.ErrorContains(t, bad.Validate(), "MAP_TOKEN_BUDGET")

	bad = cfg
	bad.LLMProvider = "openai"
	assert.ErrorContains(t, bad.Validate(), "OPENAI_API_KEY")
	bad.OpenAIBaseURL = "http://localhost:8000/v1"
	assert.NoError(t, bad.Validate())
}
