package rulestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridline/contract-engine/internal/types"
)

// PostgresStore implements Store on PostgreSQL. Expected schema:
//
//	CREATE TABLE business_rules (
//	    id               UUID PRIMARY KEY,
//	    document_id      TEXT NOT NULL,
//	    fingerprint      TEXT NOT NULL,
//	    category         TEXT NOT NULL,
//	    statement        TEXT NOT NULL,
//	    source_field_refs JSONB NOT NULL DEFAULT '[]',
//	    confidence       DOUBLE PRECISION NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    UNIQUE (document_id, fingerprint)
//	);
//
//	CREATE TABLE extraction_results (
//	    id          UUID PRIMARY KEY,
//	    document_id TEXT NOT NULL,
//	    result      JSONB NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX extraction_results_doc_idx ON extraction_results (document_id, created_at DESC);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and verifies it.
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertRules inserts or refreshes rules keyed by (document_id, fingerprint).
// The unique constraint makes concurrent upserts for different documents
// safe without engine-side locking.
func (s *PostgresStore) UpsertRules(ctx context.Context, documentID string, rules []types.BusinessRule) (UpsertOutcome, error) {
	var outcome UpsertOutcome
	for _, rule := range rules {
		rule = rule.Normalize()
		refs, err := json.Marshal(rule.SourceFieldRefs)
		if err != nil {
			return outcome, fmt.Errorf("failed to encode source field refs: %w", err)
		}

		var inserted bool
		err = s.pool.QueryRow(ctx,
			`INSERT INTO business_rules (id, document_id, fingerprint, category, statement, source_field_refs, confidence)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (document_id, fingerprint) DO UPDATE SET
			     source_field_refs = business_rules.source_field_refs || EXCLUDED.source_field_refs,
			     confidence = GREATEST(business_rules.confidence, EXCLUDED.confidence),
			     updated_at = now()
			 RETURNING (xmax = 0)`,
			uuid.New(), documentID, rule.Fingerprint(), string(rule.Category), rule.Statement, refs, rule.Confidence,
		).Scan(&inserted)
		if err != nil {
			return outcome, fmt.Errorf("failed to upsert rule: %w", err)
		}
		if inserted {
			outcome.Inserted++
		} else {
			outcome.Updated++
		}
	}
	return outcome, nil
}

// FindPrior returns the latest stored result for the document, or nil.
func (s *PostgresStore) FindPrior(ctx context.Context, documentID string) (*types.ExtractionResult, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM extraction_results
		 WHERE document_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		documentID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load prior result: %w", err)
	}

	var result types.ExtractionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode prior result: %w", err)
	}
	return &result, nil
}

// SaveResult appends a new result row; prior rows stay for audit.
func (s *PostgresStore) SaveResult(ctx context.Context, result *types.ExtractionResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO extraction_results (id, document_id, result) VALUES ($1, $2, $3)`,
		uuid.New(), result.DocumentID, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}
