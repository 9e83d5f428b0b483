package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ScoringCall is one generative assessment recorded for audit. Legal
// review needs to reconstruct which model said what about which clause.
type ScoringCall struct {
	ID          int64     `json:"id"`
	ContractID  string    `json:"contract_id"`
	ClauseIndex int       `json:"clause_index"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Verdict     string    `json:"verdict"`
	Confidence  float64   `json:"confidence"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(ctx context.Context, pool *pgxpool.Pool) (*AuditRepo, error) {
	r := &AuditRepo{pool: pool}
	const schema = `CREATE TABLE IF NOT EXISTS scoring_calls (
		id BIGSERIAL PRIMARY KEY,
		contract_id TEXT NOT NULL,
		clause_index INT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		verdict TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure scoring_calls schema: %w", err)
	}
	if _, err := pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS scoring_calls_contract_idx ON scoring_calls (contract_id)`); err != nil {
		return nil, fmt.Errorf("ensure scoring_calls index: %w", err)
	}
	return r, nil
}

func (r *AuditRepo) Record(ctx context.Context, call ScoringCall) error {
	const q = `INSERT INTO scoring_calls (contract_id, clause_index, provider, model, verdict, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.pool.Exec(ctx, q,
		call.ContractID, call.ClauseIndex, call.Provider, call.Model, call.Verdict, call.Confidence); err != nil {
		return fmt.Errorf("record scoring call: %w", err)
	}
	return nil
}

func (r *AuditRepo) ListByContract(ctx context.Context, contractID string) ([]ScoringCall, error) {
	const q = `SELECT id, contract_id, clause_index, provider, model, verdict, confidence, created_at
		FROM scoring_calls WHERE contract_id = $1 ORDER BY clause_index, id`
	rows, err := r.pool.Query(ctx, q, contractID)
	if err != nil {
		return nil, fmt.Errorf("list scoring calls: %w", err)
	}
	defer rows.Close()

	var calls []ScoringCall
	for rows.Next() {
		var c ScoringCall
		if err := rows.Scan(&c.ID, &c.ContractID, &c.ClauseIndex, &c.Provider, &c.Model,
			&c.Verdict, &c.Confidence, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scoring call: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
