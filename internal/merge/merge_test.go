package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/contract-engine/internal/extraction"
	"github.com/gridline/contract-engine/internal/types"
)

var mergeTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func patternCandidate(field, value string) types.CandidateField {
	return types.CandidateField{FieldName: field, RawValue: value, Method: types.MethodPattern}
}

func classification(conf float64) types.ClassificationResult {
	return types.ClassificationResult{
		DocumentType: types.DocTypeLeaseSupplement,
		Confidence:   conf,
		DetectedCues: []string{"Lease Supplement"},
	}
}

func TestMerge_FieldArbitration(t *testing.T) {
	engine := New(DefaultConfig())

	tests := []struct {
		name     string
		input    Input
		validate func(*testing.T, *types.ExtractionResult)
	}{
		{
			name: "AI wins over pattern at or above the confidence floor",
			input: Input{
				DocumentID:     "doc-1",
				Fields:         []string{"capacity_kw"},
				Classification: classification(1.0),
				Candidates:     []types.CandidateField{patternCandidate("capacity_kw", "2,800")},
				AI: &extraction.Result{
					ExtractedData: map[string]string{"capacity_kw": "2800"},
					Confidence:    map[string]float64{"capacity_kw": 0.9},
				},
				At: mergeTime,
			},
			validate: func(t *testing.T, result *types.ExtractionResult) {
				assert.Equal(t, "2800", result.ExtractedData["capacity_kw"])
			},
		},
		{
			name: "Pattern kept when AI confidence is below the floor",
			input: Input{
				DocumentID:     "doc-1",
				Fields:         []string{"capacity_kw"},
				Classification: classification(1.0),
				Candidates:     []types.CandidateField{patternCandidate("capacity_kw", "2,800")},
				AI: &extraction.Result{
					ExtractedData: map[string]string{"capacity_kw": "9999"},
					Confidence:    map[string]float64{"capacity_kw": 0.1},
				},
				At: mergeTime,
			},
			validate: func(t *testing.T, result *types.ExtractionResult) {
				assert.Equal(t, "2,800", result.ExtractedData["capacity_kw"])
			},
		},
		{
			name: "AI-only value wins regardless of floor",
			input: Input{
				DocumentID:     "doc-1",
				Fields:         []string{"warranty_years"},
				Classification: classification(0.5),
				AI: &extraction.Result{
					ExtractedData: map[string]string{"warranty_years": "10"},
					Confidence:    map[string]float64{"warranty_years": 0.2},
				},
				At: mergeTime,
			},
			validate: func(t *testing.T, result *types.ExtractionResult) {
				assert.Equal(t, "10", result.ExtractedData["warranty_years"])
			},
		},
		{
			name: "Unresolvable field gets the explicit sentinel",
			input: Input{
				DocumentID:     "doc-1",
				Fields:         []string{"term_years"},
				Classification: classification(0.5),
				At:             mergeTime,
			},
			validate: func(t *testing.T, result *types.ExtractionResult) {
				assert.Equal(t, types.UnresolvedValue, result.ExtractedData["term_years"])
				assert.Equal(t, 0.0, result.ConfidencePerField["term_years"])
			},
		},
		{
			name: "AI fields beyond the requested set are kept",
			input: Input{
				DocumentID:     "doc-1",
				Fields:         []string{"capacity_kw"},
				Classification: classification(0.5),
				AI: &extraction.Result{
					ExtractedData: map[string]string{"uptime_guarantee_percent": "95"},
					Confidence:    map[string]float64{"uptime_guarantee_percent": 0.8},
				},
				At: mergeTime,
			},
			validate: func(t *testing.T, result *types.ExtractionResult) {
				assert.Equal(t, "95", result.ExtractedData["uptime_guarantee_percent"])
				assert.Equal(t, types.UnresolvedValue, result.ExtractedData["capacity_kw"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Merge(tt.input)
			requireInvariants(t, result)
			tt.validate(t, result)
		})
	}
}

// requireInvariants checks the structural invariants every result must hold.
func requireInvariants(t *testing.T, result *types.ExtractionResult) {
	t.Helper()
	require.NotNil(t, result)
	for field := range result.ExtractedData {
		conf, ok := result.ConfidencePerField[field]
		require.True(t, ok, "field %s missing confidence", field)
		assert.GreaterOrEqual(t, conf, 0.0)
		assert.LessOrEqual(t, conf, 1.0)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	engine := New(DefaultConfig())

	input := Input{
		DocumentID:     "doc-1",
		Fields:         []string{"capacity_kw", "rate_per_kwh", "term_years"},
		Classification: classification(0.8),
		Candidates:     []types.CandidateField{patternCandidate("rate_per_kwh", "0.135")},
		AI: &extraction.Result{
			ExtractedData: map[string]string{"capacity_kw": "2800"},
			Confidence:    map[string]float64{"capacity_kw": 0.9},
			Rules: []types.BusinessRule{
				{Category: types.RuleFinancial, Statement: "Rate escalates 2.5% annually", Confidence: 0.8},
			},
		},
		At: mergeTime,
	}

	first := engine.Merge(input)

	rerun := input
	rerun.Previous = first
	second := engine.Merge(rerun)

	assert.Equal(t, first.ExtractedData, second.ExtractedData)
	assert.Equal(t, first.ConfidencePerField, second.ConfidencePerField)
	assert.Equal(t, first.ExtractedRules, second.ExtractedRules)
}

func TestMerge_MonotonicImprovement(t *testing.T) {
	engine := New(DefaultConfig())

	previous := &types.ExtractionResult{
		DocumentID:         "doc-1",
		ExtractedData:      map[string]string{"capacity_kw": "2800", "term_years": types.UnresolvedValue},
		ConfidencePerField: map[string]float64{"capacity_kw": 0.9, "term_years": 0},
	}

	t.Run("Lower-confidence re-extraction leaves the field unchanged", func(t *testing.T) {
		result := engine.Merge(Input{
			DocumentID:     "doc-1",
			Fields:         []string{"capacity_kw"},
			Classification: classification(0.1),
			AI: &extraction.Result{
				ExtractedData: map[string]string{"capacity_kw": "999"},
				Confidence:    map[string]float64{"capacity_kw": 0.3},
			},
			Previous: previous,
			At:       mergeTime,
		})
		requireInvariants(t, result)
		assert.Equal(t, "2800", result.ExtractedData["capacity_kw"])
		assert.Equal(t, 0.9, result.ConfidencePerField["capacity_kw"])
	})

	t.Run("Previously unresolved field accepts any new value", func(t *testing.T) {
		result := engine.Merge(Input{
			DocumentID:     "doc-1",
			Fields:         []string{"term_years"},
			Classification: classification(0.1),
			AI: &extraction.Result{
				ExtractedData: map[string]string{"term_years": "15"},
				Confidence:    map[string]float64{"term_years": 0.2},
			},
			Previous: previous,
			At:       mergeTime,
		})
		requireInvariants(t, result)
		assert.Equal(t, "15", result.ExtractedData["term_years"])
	})

	t.Run("Field absent from the new run carries over", func(t *testing.T) {
		result := engine.Merge(Input{
			DocumentID:     "doc-1",
			Fields:         []string{"rate_per_kwh"},
			Classification: classification(0.1),
			Previous:       previous,
			At:             mergeTime,
		})
		requireInvariants(t, result)
		assert.Equal(t, "2800", result.ExtractedData["capacity_kw"])
	})
}

func TestMerge_RuleDeduplication(t *testing.T) {
	engine := New(DefaultConfig())

	previous := &types.ExtractionResult{
		DocumentID:         "doc-1",
		ExtractedData:      map[string]string{},
		ConfidencePerField: map[string]float64{},
		ExtractedRules: []types.BusinessRule{
			{Category: types.RuleFinancial, Statement: "Rate escalates 2.5% annually", SourceFieldRefs: []string{"escalator_percent"}, Confidence: 0.7},
		},
	}

	result := engine.Merge(Input{
		DocumentID:     "doc-1",
		Classification: classification(0.5),
		AI: &extraction.Result{
			Rules: []types.BusinessRule{
				{Category: "FINANCIAL", Statement: "  rate escalates 2.5%  annually ", SourceFieldRefs: []string{"rate_per_kwh"}, Confidence: 0.6},
				{Category: types.RuleTechnical, Statement: "Uptime must exceed 95%", SourceFieldRefs: []string{"uptime_guarantee_percent"}, Confidence: 0.9},
			},
		},
		Previous: previous,
		At:       mergeTime,
	})

	require.Len(t, result.ExtractedRules, 2)

	escalator := result.ExtractedRules[0]
	assert.Equal(t, types.RuleFinancial, escalator.Category)
	assert.Equal(t, []string{"escalator_percent", "rate_per_kwh"}, escalator.SourceFieldRefs, "duplicate folds in the union of source refs")
	assert.Equal(t, 0.7, escalator.Confidence, "dedup keeps the higher confidence")

	assert.Equal(t, types.RuleTechnical, result.ExtractedRules[1].Category)
}

func TestMergeResults_Standalone(t *testing.T) {
	engine := New(DefaultConfig())

	previous := &types.ExtractionResult{
		DocumentID:         "doc-1",
		ExtractedData:      map[string]string{"capacity_kw": "2800"},
		ConfidencePerField: map[string]float64{"capacity_kw": 0.9},
	}
	current := &types.ExtractionResult{
		DocumentID:         "doc-1",
		ExtractedData:      map[string]string{"capacity_kw": "999", "term_years": "15"},
		ConfidencePerField: map[string]float64{"capacity_kw": 0.5, "term_years": 0.8},
	}

	merged := engine.MergeResults(current, previous)
	assert.Equal(t, "2800", merged.ExtractedData["capacity_kw"], "lower confidence never overwrites")
	assert.Equal(t, "15", merged.ExtractedData["term_years"])

	// Inputs are untouched.
	assert.Equal(t, "999", current.ExtractedData["capacity_kw"])

	assert.Nil(t, engine.MergeResults(nil, nil))
	assert.Equal(t, "2800", engine.MergeResults(nil, previous).ExtractedData["capacity_kw"])
	assert.Equal(t, "15", engine.MergeResults(current, nil).ExtractedData["term_years"])
}

func TestMerge_ConfidenceCombinationBounds(t *testing.T) {
	engine := New(Config{AIConfidenceFloor: 0.4, PatternConfidence: 0.6, AIWeight: 0.8, ClassifierWeight: 0.2})

	for _, classifierConf := range []float64{0, 0.25, 0.5, 1} {
		for _, aiConf := range []float64{0.4, 0.7, 1} {
			result := engine.Merge(Input{
				DocumentID:     "doc-1",
				Fields:         []string{"capacity_kw"},
				Classification: classification(classifierConf),
				AI: &extraction.Result{
					ExtractedData: map[string]string{"capacity_kw": "2800"},
					Confidence:    map[string]float64{"capacity_kw": aiConf},
				},
				At: mergeTime,
			})
			conf := result.ConfidencePerField["capacity_kw"]
			assert.GreaterOrEqual(t, conf, 0.0)
			assert.LessOrEqual(t, conf, 1.0)
			// Higher field confidence never lowers combined confidence.
			assert.GreaterOrEqual(t, conf, 0.8*aiConf)
		}
	}
}
