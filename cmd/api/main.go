package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"

	"clausecheck/internal/api"
	"clausecheck/internal/chunker"
	"clausecheck/internal/config"
	"clausecheck/internal/index"
	"clausecheck/internal/ingest"
	"clausecheck/internal/providers"
	"clausecheck/internal/scoring"
	"clausecheck/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	chunkCfg := chunker.Config{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
		Lookahead: cfg.ChunkLookahead,
	}
	if err := chunkCfg.Validate(); err != nil {
		log.Fatalf("chunker config: %v", err)
	}

	manager, err := providers.NewManager(cfg.LLMProviders, cfg.EmbedProviders, cfg.EmbedDim)
	if err != nil {
		log.Fatalf("providers: %v", err)
	}
	retryPolicy := providers.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMillis) * time.Millisecond,
	}
	embedder := providers.NewRetryingEmbedder(manager.FirstEmbedder(), retryPolicy)
	llm := providers.NewRetryingLLM(manager.FirstLLM(), retryPolicy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idx, closeIndex, err := index.Open(ctx, &cfg)
	if err != nil {
		log.Fatalf("index: %v", err)
	}
	defer func() {
		if err := closeIndex(context.Background()); err != nil {
			log.Printf("close index: %v", err)
		}
	}()

	pipeline := &ingest.Pipeline{
		Index:    idx,
		Embedder: embedder,
		Chunk:    chunkCfg,
		EmbedDim: cfg.EmbedDim,
	}
	analyzer := &scoring.Analyzer{
		Scorer: &scoring.Scorer{
			Retriever: &scoring.Retriever{
				Index:    idx,
				Embedder: embedder,
				TopK:     cfg.RetrievalTopK,
				EmbedDim: cfg.EmbedDim,
			},
			LLM:             llm,
			MaxContextChars: cfg.MaxContextChars,
		},
		MaxConcurrent: cfg.MaxConcurrentClauses,
	}

	var docs *storage.DocumentRepo
	if pool, err := storage.Connect(ctx, cfg.PostgresURL); err != nil {
		log.Printf("document tracking disabled: %v", err)
	} else {
		docs, err = storage.NewDocumentRepo(ctx, pool)
		if err != nil {
			log.Fatalf("documents schema: %v", err)
		}
		defer pool.Close()
	}

	var temporalClient client.Client
	if c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress}); err != nil {
		log.Printf("temporal unavailable, running inline: %v", err)
	} else {
		temporalClient = c
		defer c.Close()
	}

	server := api.NewServer(cfg, pipeline, analyzer, temporalClient, docs)
	log.Printf("api listening on %s (index backend %s)", cfg.APIAddr, cfg.IndexBackend)
	if err := server.ListenAndServe(ctx); err != nil {
		log.Fatalf("api server: %v", err)
	}
}
