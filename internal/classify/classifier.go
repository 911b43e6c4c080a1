// Package classify assigns a document type to raw contract text using
// weighted keyword and regex cues.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gridline/contract-engine/internal/types"
)

// Cue is a weighted pattern associated with one document type. Pattern is a
// case-insensitive substring unless Regex is set, in which case it is
// compiled as a case-insensitive regular expression. Cues match
// independently and do not consume text, so overlapping cues all fire.
type Cue struct {
	ID        string
	Pattern   string
	Regex     bool
	Weight    float64
	AppliesTo types.DocumentType
}

// Identifier returns the cue's identity for DetectedCues reporting.
func (c Cue) Identifier() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Pattern
}

// Classifier scores text against a static cue set. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	cues     []Cue
	compiled []*regexp.Regexp // index-aligned with cues; nil for substring cues
}

// New builds a classifier from the given cue set. Regex cues are compiled
// eagerly so a malformed pattern fails at construction, not at classify time.
func New(cues []Cue) (*Classifier, error) {
	c := &Classifier{
		cues:     append([]Cue(nil), cues...),
		compiled: make([]*regexp.Regexp, len(cues)),
	}
	for i, cue := range c.cues {
		if cue.Weight <= 0 {
			return nil, fmt.Errorf("cue %q: weight must be positive, got %v", cue.Identifier(), cue.Weight)
		}
		if cue.AppliesTo == "" || cue.AppliesTo == types.DocTypeUnclassified {
			return nil, fmt.Errorf("cue %q: applies-to must name a classifiable document type", cue.Identifier())
		}
		if !cue.Regex {
			continue
		}
		re, err := regexp.Compile("(?i)" + cue.Pattern)
		if err != nil {
			return nil, fmt.Errorf("cue %q: invalid pattern: %w", cue.Identifier(), err)
		}
		c.compiled[i] = re
	}
	return c, nil
}

// Classify scores text against every cue and returns the winning document
// type with normalized confidence. Absence of any matching cue is a valid,
// zero-confidence Unclassified outcome, and ties between top-scoring types
// also resolve to Unclassified rather than picking arbitrarily.
func (c *Classifier) Classify(text string) types.ClassificationResult {
	lower := strings.ToLower(text)

	scores := make(map[types.DocumentType]float64)
	var detected []string
	var total float64

	for i, cue := range c.cues {
		matched := false
		if re := c.compiled[i]; re != nil {
			matched = re.MatchString(text)
		} else {
			matched = strings.Contains(lower, strings.ToLower(cue.Pattern))
		}
		if !matched {
			continue
		}
		scores[cue.AppliesTo] += cue.Weight
		total += cue.Weight
		detected = append(detected, cue.Identifier())
	}

	if total == 0 {
		return types.ClassificationResult{
			DocumentType: types.DocTypeUnclassified,
			Confidence:   0,
		}
	}

	var winner types.DocumentType
	var best float64
	tied := false
	for docType, score := range scores {
		switch {
		case score > best:
			winner, best, tied = docType, score, false
		case score == best:
			tied = true
		}
	}

	if tied {
		return types.ClassificationResult{
			DocumentType: types.DocTypeUnclassified,
			Confidence:   0,
			DetectedCues: detected,
		}
	}

	return types.ClassificationResult{
		DocumentType: winner,
		Confidence:   best / total,
		DetectedCues: detected,
	}
}
