// Package engine wires the extraction layers into the caller-facing
// surface: classify-and-extract for one document, monotonic re-extraction
// merging, and the batch entry point.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridline/contract-engine/internal/candidates"
	"github.com/gridline/contract-engine/internal/classify"
	"github.com/gridline/contract-engine/internal/extraction"
	"github.com/gridline/contract-engine/internal/llm"
	"github.com/gridline/contract-engine/internal/merge"
	"github.com/gridline/contract-engine/internal/rulestore"
	"github.com/gridline/contract-engine/internal/types"
)

// Document is one unit of work: an identity plus its raw payload.
type Document struct {
	ID      string
	Payload llm.Payload
}

// Engine runs the per-document pipeline: classification → candidate
// extraction → AI extraction → merge → persistence.
type Engine struct {
	classifier *classify.Classifier
	extractor  *candidates.Extractor
	adapter    *extraction.Adapter
	merger     *merge.Engine
	store      rulestore.Store
	log        zerolog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// New assembles an engine. All collaborators are required except store,
// which defaults to an in-memory store when nil.
func New(classifier *classify.Classifier, extractor *candidates.Extractor, adapter *extraction.Adapter, merger *merge.Engine, store rulestore.Store, log zerolog.Logger) (*Engine, error) {
	if classifier == nil || extractor == nil || adapter == nil || merger == nil {
		return nil, fmt.Errorf("classifier, extractor, adapter, and merger are all required")
	}
	if store == nil {
		store = rulestore.NewMemoryStore()
	}
	return &Engine{
		classifier: classifier,
		extractor:  extractor,
		adapter:    adapter,
		merger:     merger,
		store:      store,
		log:        log,
		now:        time.Now,
	}, nil
}

// ClassifyAndExtract runs the full pipeline for one document and persists
// the outcome. The document fails outright only on backend exhaustion or
// an oversized payload; a response parse failure degrades to pattern-only
// extraction after one strict re-prompt.
func (e *Engine) ClassifyAndExtract(ctx context.Context, doc Document) (*types.ExtractionResult, error) {
	classification := e.classifier.Classify(doc.Payload.Text)
	cands := e.extractor.Extract(doc.Payload.Text, classification.DocumentType)
	fields := e.extractor.FieldsFor(classification.DocumentType)

	e.log.Debug().
		Str("document_id", doc.ID).
		Str("document_type", string(classification.DocumentType)).
		Float64("confidence", classification.Confidence).
		Int("candidates", len(cands)).
		Msg("classified document")

	aiResult, err := e.extractAI(ctx, doc, classification.DocumentType, fields, cands)
	if err != nil {
		return nil, err
	}

	previous, err := e.store.FindPrior(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior result for %s: %w", doc.ID, err)
	}

	result := e.merger.Merge(merge.Input{
		DocumentID:     doc.ID,
		Fields:         fields,
		Classification: classification,
		Candidates:     cands,
		AI:             aiResult,
		Previous:       previous,
		At:             e.now(),
	})

	if err := e.store.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save result for %s: %w", doc.ID, err)
	}
	if _, err := e.store.UpsertRules(ctx, doc.ID, result.ExtractedRules); err != nil {
		return nil, fmt.Errorf("failed to upsert rules for %s: %w", doc.ID, err)
	}
	return result, nil
}

// extractAI calls the AI adapter with parse-failure recovery: one strict
// re-prompt, then graceful degradation to pattern-only merging. Backend
// exhaustion and oversized payloads are the only fatal outcomes.
func (e *Engine) extractAI(ctx context.Context, doc Document, docType types.DocumentType, fields []string, cands []types.CandidateField) (*extraction.Result, error) {
	hints := extraction.Hints{
		DocumentType: docType,
		Fields:       fields,
		Candidates:   cands,
	}

	aiResult, err := e.adapter.Extract(ctx, doc.Payload, hints)
	if err == nil {
		return aiResult, nil
	}

	var parseErr *extraction.ResponseParseError
	if !errors.As(err, &parseErr) {
		return nil, err
	}

	e.log.Warn().Str("document_id", doc.ID).Err(err).Msg("retrying with strict prompt after parse failure")
	hints.Strict = true
	aiResult, err = e.adapter.Extract(ctx, doc.Payload, hints)
	if err == nil {
		return aiResult, nil
	}
	if errors.As(err, &parseErr) {
		e.log.Warn().Str("document_id", doc.ID).Err(err).Msg("strict re-prompt also unparseable, continuing pattern-only")
		return nil, nil
	}
	return nil, err
}

// MergeWithPrevious exposes the monotonic-improvement merge standalone for
// re-extraction comparisons.
func (e *Engine) MergeWithPrevious(current, previous *types.ExtractionResult) *types.ExtractionResult {
	return e.merger.MergeResults(current, previous)
}

// Store returns the engine's persistence boundary.
func (e *Engine) Store() rulestore.Store {
	return e.store
}
