// Package rulestore persists deduplicated business rules and extraction
// results. The engine treats storage as an external capability behind the
// Store interface; implementations must make UpsertRules safe under
// concurrent calls with different document IDs.
package rulestore

import (
	"context"

	"github.com/gridline/contract-engine/internal/types"
)

// UpsertOutcome reports what an upsert did.
type UpsertOutcome struct {
	Inserted int
	Updated  int
}

// Store is the persistence boundary consumed by the engine.
type Store interface {
	// UpsertRules inserts or refreshes rules for a document, keyed by
	// (documentID, rule fingerprint).
	UpsertRules(ctx context.Context, documentID string, rules []types.BusinessRule) (UpsertOutcome, error)
	// FindPrior returns the most recent stored extraction result for the
	// document, or nil when there is none.
	FindPrior(ctx context.Context, documentID string) (*types.ExtractionResult, error)
	// SaveResult stores a new extraction result. Results are append-only;
	// earlier results for the same document are retained for audit.
	SaveResult(ctx context.Context, result *types.ExtractionResult) error
}
