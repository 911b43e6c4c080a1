// Package merge reconciles classifier candidates, AI extraction output, and
// any prior extraction result into a single ExtractionResult with per-field
// confidence. The engine is pure with respect to its inputs: no hidden
// state, no I/O, no clock reads.
package merge

import (
	"time"

	"github.com/gridline/contract-engine/internal/extraction"
	"github.com/gridline/contract-engine/internal/types"
)

// Config tunes field arbitration and confidence combination. The weighting
// constants are tunable parameters, not invariants: tests cover only bounds
// and monotonicity.
type Config struct {
	// AIConfidenceFloor is the minimum AI field confidence required for an
	// AI value to win over a non-empty pattern value.
	AIConfidenceFloor float64
	// PatternConfidence is the extraction confidence assigned to
	// pattern-sourced values, which carry no model score of their own.
	PatternConfidence float64
	// AIWeight and ClassifierWeight combine field-level extraction
	// confidence with classifier confidence. The classifier only supports
	// field selection, not value correctness, so it weighs lower.
	AIWeight         float64
	ClassifierWeight float64
}

// DefaultConfig returns the default merge tuning.
func DefaultConfig() Config {
	return Config{
		AIConfidenceFloor: 0.4,
		PatternConfidence: 0.6,
		AIWeight:          0.8,
		ClassifierWeight:  0.2,
	}
}

// Input is everything one merge needs.
type Input struct {
	DocumentID     string
	Fields         []string
	Classification types.ClassificationResult
	Candidates     []types.CandidateField
	AI             *extraction.Result
	Previous       *types.ExtractionResult
	At             time.Time
}

// Engine merges extraction signals under a fixed Config.
type Engine struct {
	config Config
}

// New builds a merge engine; zero-valued config fields fall back to
// defaults.
func New(config Config) *Engine {
	defaults := DefaultConfig()
	if config.AIConfidenceFloor == 0 {
		config.AIConfidenceFloor = defaults.AIConfidenceFloor
	}
	if config.PatternConfidence == 0 {
		config.PatternConfidence = defaults.PatternConfidence
	}
	if config.AIWeight == 0 && config.ClassifierWeight == 0 {
		config.AIWeight = defaults.AIWeight
		config.ClassifierWeight = defaults.ClassifierWeight
	}
	return &Engine{config: config}
}

// Merge produces a new ExtractionResult. Inputs are never mutated; the
// previous result, when present, is merged under the monotonic-improvement
// policy: a previously resolved field is only overwritten by a non-empty
// new value whose confidence strictly exceeds the previous one.
func (e *Engine) Merge(in Input) *types.ExtractionResult {
	result := &types.ExtractionResult{
		DocumentID:           in.DocumentID,
		ExtractedData:        make(map[string]string),
		ConfidencePerField:   make(map[string]float64),
		StructuredExtraction: in.Classification,
		Timestamp:            in.At,
	}
	if in.AI != nil {
		result.Usage = in.AI.Usage
	}

	patternValues := firstPatternValues(in.Candidates)

	for _, field := range fieldUniverse(in) {
		value, conf := e.resolveField(field, patternValues, in.AI)
		if !types.Resolved(value) {
			result.ExtractedData[field] = types.UnresolvedValue
			result.ConfidencePerField[field] = 0
			continue
		}
		result.ExtractedData[field] = value
		result.ConfidencePerField[field] = clamp01(e.config.AIWeight*conf + e.config.ClassifierWeight*in.Classification.Confidence)
	}

	result.ExtractedRules = e.mergeRules(in)

	if in.Previous != nil {
		e.applyMonotonic(result, in.Previous)
	}
	return result
}

// resolveField arbitrates between the pattern candidate and the AI value
// for one field. When both are non-empty the AI value wins only at or above
// the confidence floor; a value present on exactly one side wins outright.
func (e *Engine) resolveField(field string, patternValues map[string]string, ai *extraction.Result) (string, float64) {
	patternValue := patternValues[field]

	var aiValue string
	var aiConf float64
	if ai != nil {
		aiValue = ai.ExtractedData[field]
		aiConf = ai.Confidence[field]
	}

	switch {
	case aiValue != "" && patternValue != "":
		if aiConf >= e.config.AIConfidenceFloor {
			return aiValue, aiConf
		}
		return patternValue, e.config.PatternConfidence
	case aiValue != "":
		return aiValue, aiConf
	case patternValue != "":
		return patternValue, e.config.PatternConfidence
	}
	return "", 0
}

// applyMonotonic overlays the previous result so re-extraction never
// degrades previously good data.
func (e *Engine) applyMonotonic(result *types.ExtractionResult, previous *types.ExtractionResult) {
	for field, prevValue := range previous.ExtractedData {
		prevConf := previous.ConfidencePerField[field]
		newValue, present := result.ExtractedData[field]

		if !types.Resolved(prevValue) {
			// Previously unresolved: any resolved new value is an improvement.
			if !present {
				result.ExtractedData[field] = types.UnresolvedValue
				result.ConfidencePerField[field] = 0
			}
			continue
		}

		if !present || !types.Resolved(newValue) || result.ConfidencePerField[field] <= prevConf {
			result.ExtractedData[field] = prevValue
			result.ConfidencePerField[field] = prevConf
		}
	}

	if result.Usage.InputUnits == 0 && result.Usage.OutputUnits == 0 {
		result.Usage = previous.Usage
	}
}

// MergeResults applies the monotonic-improvement policy between two
// already-built results for the same document. It backs the standalone
// re-extraction comparison surface: current is the fresh extraction,
// previous the stored one, and the output never degrades a field previous
// had resolved.
func (e *Engine) MergeResults(current, previous *types.ExtractionResult) *types.ExtractionResult {
	if current == nil {
		return previous.Clone()
	}
	out := current.Clone()
	if previous == nil {
		return out
	}

	var index = make(map[string]int)
	var rules []types.BusinessRule
	for _, rule := range append(append([]types.BusinessRule(nil), previous.ExtractedRules...), current.ExtractedRules...) {
		rule = rule.Normalize()
		fp := rule.Fingerprint()
		if i, seen := index[fp]; seen {
			rules[i].SourceFieldRefs = unionRefs(rules[i].SourceFieldRefs, rule.SourceFieldRefs)
			if rule.Confidence > rules[i].Confidence {
				rules[i].Confidence = rule.Confidence
			}
			continue
		}
		index[fp] = len(rules)
		rules = append(rules, rule)
	}
	out.ExtractedRules = rules

	e.applyMonotonic(out, previous)
	return out
}

// mergeRules normalizes and deduplicates rules by fingerprint across the
// previous result and the new AI output. A duplicate is dropped, its source
// field references folded into the survivor.
func (e *Engine) mergeRules(in Input) []types.BusinessRule {
	var out []types.BusinessRule
	index := make(map[string]int)

	add := func(rule types.BusinessRule) {
		rule = rule.Normalize()
		fp := rule.Fingerprint()
		if i, seen := index[fp]; seen {
			out[i].SourceFieldRefs = unionRefs(out[i].SourceFieldRefs, rule.SourceFieldRefs)
			if rule.Confidence > out[i].Confidence {
				out[i].Confidence = rule.Confidence
			}
			return
		}
		index[fp] = len(out)
		out = append(out, rule)
	}

	if in.Previous != nil {
		for _, rule := range in.Previous.ExtractedRules {
			add(rule)
		}
	}
	if in.AI != nil {
		for _, rule := range in.AI.Rules {
			add(rule)
		}
	}
	return out
}
