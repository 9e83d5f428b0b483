package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"clausecheck/internal/activities"
	"clausecheck/internal/chunker"
	"clausecheck/internal/config"
	"clausecheck/internal/index"
	"clausecheck/internal/ingest"
	"clausecheck/internal/providers"
	"clausecheck/internal/scoring"
	"clausecheck/internal/storage"
	"clausecheck/internal/workflows"
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

	ctx := context.Background()
	idx, closeIndex, err := index.Open(ctx, &cfg)
	if err != nil {
		log.Fatalf("index: %v", err)
	}

	var (
		docs  *storage.DocumentRepo
		audit *storage.AuditRepo
	)
	if pool, err := storage.Connect(ctx, cfg.PostgresURL); err != nil {
		log.Printf("database bookkeeping disabled: %v", err)
	} else {
		defer pool.Close()
		if docs, err = storage.NewDocumentRepo(ctx, pool); err != nil {
			log.Fatalf("documents schema: %v", err)
		}
		if audit, err = storage.NewAuditRepo(ctx, pool); err != nil {
			log.Fatalf("audit schema: %v", err)
		}
	}

	acts := activities.New(activities.Deps{
		Pipeline: &ingest.Pipeline{
			Index:    idx,
			Embedder: embedder,
			Chunk:    chunkCfg,
			EmbedDim: cfg.EmbedDim,
		},
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
		DataOut:    cfg.DataOutRoot,
		Docs:       docs,
		Audit:      audit,
		ProviderID: cfg.LLMProviders,
	})

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatalf("temporal: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.RegisterAll(w, acts)

	log.Printf("worker polling %s on %s", cfg.TemporalTaskQueue, cfg.TemporalAddress)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
	if err := closeIndex(context.Background()); err != nil {
		log.Printf("close index: %v", err)
	}
}
