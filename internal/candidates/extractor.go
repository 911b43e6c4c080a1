// Package candidates produces raw candidate field values by running
// document-type-specific patterns over contract text. Every pattern attempt
// is best-effort: a miss contributes no candidate and is not an error, and
// multiple patterns for the same field may each contribute a candidate.
// Selection between candidates is deferred to the merge engine.
package candidates

import (
	"regexp"
	"strings"

	"github.com/gridline/contract-engine/internal/types"
)

// FieldPattern binds one regular expression to a named field. If the
// expression has a capture group, group 1 is the candidate value; otherwise
// the whole match is.
type FieldPattern struct {
	Field   string
	Pattern *regexp.Regexp
}

// Extractor looks up the pattern set registered for a document type and
// applies it. Types with no registered set, and Unclassified, fall back to
// the generic set.
type Extractor struct {
	registry map[types.DocumentType][]FieldPattern
	generic  []FieldPattern
}

// New builds an extractor from a per-type registry and a generic fallback
// set. Both are copied; the extractor is safe for concurrent use.
func New(registry map[types.DocumentType][]FieldPattern, generic []FieldPattern) *Extractor {
	reg := make(map[types.DocumentType][]FieldPattern, len(registry))
	for docType, patterns := range registry {
		reg[docType] = append([]FieldPattern(nil), patterns...)
	}
	return &Extractor{
		registry: reg,
		generic:  append([]FieldPattern(nil), generic...),
	}
}

// NewDefault builds an extractor with the built-in energy-contract patterns.
func NewDefault() *Extractor {
	return New(defaultRegistry(), genericPatterns())
}

// FieldsFor returns the distinct field names registered for a document
// type, in registration order. This is the field set the AI layer is asked
// for and the merge engine resolves.
func (e *Extractor) FieldsFor(docType types.DocumentType) []string {
	patterns, ok := e.registry[docType]
	if !ok || docType == types.DocTypeUnclassified {
		patterns = e.generic
	}
	seen := make(map[string]bool, len(patterns))
	var fields []string
	for _, fp := range patterns {
		if !seen[fp.Field] {
			seen[fp.Field] = true
			fields = append(fields, fp.Field)
		}
	}
	return fields
}

// Extract runs every pattern registered for docType over text and returns
// the candidates in pattern-registration order.
func (e *Extractor) Extract(text string, docType types.DocumentType) []types.CandidateField {
	patterns, ok := e.registry[docType]
	if !ok || docType == types.DocTypeUnclassified {
		patterns = e.generic
	}

	var out []types.CandidateField
	for _, fp := range patterns {
		loc := fp.Pattern.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		start, end := loc[0], loc[1]
		if len(loc) >= 4 && loc[2] >= 0 {
			start, end = loc[2], loc[3]
		}
		value := strings.TrimSpace(text[start:end])
		if value == "" {
			continue
		}
		out = append(out, types.CandidateField{
			FieldName: fp.Field,
			RawValue:  value,
			Span:      &types.SourceSpan{Start: start, End: end},
			Method:    types.MethodPattern,
		})
	}
	return out
}
