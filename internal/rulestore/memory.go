package rulestore

import (
	"context"
	"sync"

	"github.com/gridline/contract-engine/internal/types"
)

// MemoryStore is an in-process Store used by tests and by CLI runs with no
// database configured.
type MemoryStore struct {
	mu      sync.RWMutex
	rules   map[string]map[string]types.BusinessRule // documentID → fingerprint → rule
	results map[string][]*types.ExtractionResult     // documentID → results, append order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:   make(map[string]map[string]types.BusinessRule),
		results: make(map[string][]*types.ExtractionResult),
	}
}

// UpsertRules inserts or refreshes rules keyed by fingerprint.
func (s *MemoryStore) UpsertRules(_ context.Context, documentID string, rules []types.BusinessRule) (UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byFingerprint, ok := s.rules[documentID]
	if !ok {
		byFingerprint = make(map[string]types.BusinessRule)
		s.rules[documentID] = byFingerprint
	}

	var outcome UpsertOutcome
	for _, rule := range rules {
		rule = rule.Normalize()
		fp := rule.Fingerprint()
		if _, exists := byFingerprint[fp]; exists {
			outcome.Updated++
		} else {
			outcome.Inserted++
		}
		byFingerprint[fp] = rule
	}
	return outcome, nil
}

// FindPrior returns the most recently saved result for the document.
func (s *MemoryStore) FindPrior(_ context.Context, documentID string) (*types.ExtractionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := s.results[documentID]
	if len(results) == 0 {
		return nil, nil
	}
	return results[len(results)-1].Clone(), nil
}

// SaveResult appends a result; prior results stay for audit.
func (s *MemoryStore) SaveResult(_ context.Context, result *types.ExtractionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.DocumentID] = append(s.results[result.DocumentID], result.Clone())
	return nil
}

// RuleCount returns how many distinct rules are stored for a document.
func (s *MemoryStore) RuleCount(documentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules[documentID])
}

// Rules returns the stored rules for a document in unspecified order.
func (s *MemoryStore) Rules(documentID string) []types.BusinessRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.BusinessRule, 0, len(s.rules[documentID]))
	for _, rule := range s.rules[documentID] {
		out = append(out, rule)
	}
	return out
}
