package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docsum/internal/api"
	"github.com/dgallion1/docsum/internal/chunker"
	"github.com/dgallion1/docsum/internal/chunkstore"
	"github.com/dgallion1/docsum/internal/config"
	"github.com/dgallion1/docsum/internal/docstore"
	"github.com/dgallion1/docsum/internal/ingest"
	"github.com/dgallion1/docsum/internal/llm"
	"github.com/dgallion1/docsum/internal/pipeline"
	"github.com/dgallion1/docsum/internal/summarize"
	"github.com/dgallion1/docsum/internal/tokenizer"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Language model client: cache, 429 retries, shared limiter, stats, provider.
	provider, err := llm.New(cfg.LLMProvider, llm.Options{
		APIKey:    providerKey(cfg),
		BaseURL:   providerURL(cfg),
		MaxTokens: cfg.MaxOutputTokens,
	})
	if err != nil {
		log.Error("llm client", "error", err)
		os.Exit(1)
	}
	client, instrumented, err := llm.Layered(provider, llm.Layers{
		Retries:       llm.MaxRetries,
		RatePerSecond: cfg.RateLimitPerSecond,
		Burst:         cfg.RateLimitBurst,
		CacheSize:     cfg.CacheSize,
		StatsWindow:   time.Hour,
		Log:           log,
	})
	if err != nil {
		log.Error("llm cache", "error", err)
		os.Exit(1)
	}

	// Storage.
	docs, err := docstore.NewFS(cfg.DocumentDir())
	if err != nil {
		log.Error("document store", "error", err)
		os.Exit(1)
	}
	ef, err := chunkstore.NewEmbeddingFunc(chunkstore.EmbedConfig{
		Provider: cfg.EmbeddingProvider,
		Model:    cfg.EmbeddingModel,
		APIKey:   cfg.OpenAIAPIKey,
		BaseURL:  embeddingURL(cfg),
	})
	if err != nil {
		log.Error("embedding function", "error", err)
		os.Exit(1)
	}
	chunks, err := chunkstore.Open(cfg.ChunkDBDir(), ef)
	if err != nil {
		log.Error("chunk store", "error", err)
		os.Exit(1)
	}

	counter := tokenizer.NewOrFallback(cfg.TokenizerEncoding, log)

	// Summarization workflow.
	chains := summarize.NewChains(client, chainModels(cfg))
	workflow := summarize.NewWorkflow(chunks, docs, chains, counter,
		summarize.WithBudgets(summarize.Budgets{
			Map:   cfg.MapTokenBudget,
			Final: cfg.FinalTokenBudget,
			Min:   cfg.MinSummaryTokens,
		}),
		summarize.WithMaxConcurrency(cfg.MaxConcurrentCalls),
		summarize.WithLogger(log),
	)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, workflow, log)
	orch.Start(ctx)

	indexer := ingest.NewIndexer(docs, chunks, chunker.Config{ChunkSize: cfg.DefaultChunkSize, Counter: counter}, log)

	// Initialize HTTP server.
	srv := api.NewServer(orch, indexer, docs, instrumented, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
	}()

	m := chains.Models()
	log.Info("starting docsum",
		"port", cfg.Port,
		"provider", cfg.LLMProvider,
		"map_model", m.Map,
		"final_model", m.Final,
		"chunks_stored", chunks.Count(),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// chainModels starts from the small/large tiers and applies per-chain
// overrides.
func chainModels(cfg config.Config) summarize.ChainModels {
	m := summarize.TieredModels(cfg.SmallModel, cfg.LargeModel)
	for _, o := range []struct {
		dst *string
		v   string
	}{
		{&m.Map, cfg.MapModel},
		{&m.Reduce, cfg.ReduceModel},
		{&m.Final, cfg.FinalModel},
		{&m.Executive, cfg.ExecutiveModel},
	} {
		if o.v != "" {
			*o.dst = o.v
		}
	}
	return m
}

func providerKey(cfg config.Config) string {
	switch cfg.LLMProvider {
	case llm.ProviderAnthropic:
		return cfg.AnthropicAPIKey
	case llm.ProviderOpenAI:
		return cfg.OpenAIAPIKey
	}
	return ""
}

func providerURL(cfg config.Config) string {
	switch cfg.LLMProvider {
	case llm.ProviderOpenAI:
		return cfg.OpenAIBaseURL
	case llm.ProviderOllama:
		return cfg.OllamaHost
	}
	return ""
}

func embeddingURL(cfg config.Config) string {
	if cfg.EmbeddingProvider == chunkstore.EmbedOpenAI {
		return cfg.OpenAIBaseURL
	}
	return cfg.OllamaHost
}
