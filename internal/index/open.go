package index

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"clausecheck/internal/config"
)

// Open builds the configured index backend. The returned close func
// persists the in-memory snapshot (or releases the pool) and should be
// deferred by the caller.
func Open(ctx context.Context, cfg *config.Config) (Index, func(context.Context) error, error) {
	switch cfg.IndexBackend {
	case "memory":
		mem := NewMemory(cfg.EmbedDim)
		if _, err := os.Stat(cfg.IndexPath); err == nil {
			if err := mem.LoadFile(cfg.IndexPath); err != nil {
				return nil, nil, fmt.Errorf("load index snapshot %s: %w", cfg.IndexPath, err)
			}
			log.Printf("loaded index snapshot from %s", cfg.IndexPath)
		}
		closeFn := func(context.Context) error {
			return mem.SaveFile(cfg.IndexPath)
		}
		return mem, closeFn, nil
	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, nil, fmt.Errorf("index backend postgres requires CLAUSECHECK_POSTGRES_URL")
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		pg, err := NewPG(ctx, pool, cfg.EmbedDim)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		closeFn := func(context.Context) error {
			pool.Close()
			return nil
		}
		return pg, closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}
