package types

import "time"

// UnresolvedValue is the explicit sentinel stored for a field no extraction
// layer could resolve. Unresolved fields are never silently omitted from
// ExtractedData; callers check Resolved to distinguish them.
const UnresolvedValue = "<unresolved>"

// Resolved reports whether a field value carries real extracted data.
func Resolved(value string) bool {
	return value != "" && value != UnresolvedValue
}

// Usage tracks backend resource consumption for an extraction attempt.
type Usage struct {
	InputUnits  int `json:"input_units"`
	OutputUnits int `json:"output_units"`
}

// Add accumulates another usage record into the receiver.
func (u *Usage) Add(other Usage) {
	u.InputUnits += other.InputUnits
	u.OutputUnits += other.OutputUnits
}

// ExtractionResult is the persisted unit produced per extraction attempt.
// It is never mutated in place: re-extraction produces a new result merged
// against the previous one, and every key in ExtractedData has a matching
// key in ConfidencePerField.
type ExtractionResult struct {
	DocumentID           string               `json:"document_id"`
	ExtractedData        map[string]string    `json:"extracted_data"`
	ConfidencePerField   map[string]float64   `json:"confidence_per_field"`
	ExtractedRules       []BusinessRule       `json:"extracted_rules"`
	StructuredExtraction ClassificationResult `json:"structured_extraction"`
	Usage                Usage                `json:"usage"`
	Timestamp            time.Time            `json:"timestamp"`
}

// Clone returns a deep copy, keeping merge inputs immutable.
func (r *ExtractionResult) Clone() *ExtractionResult {
	if r == nil {
		return nil
	}
	out := *r
	out.ExtractedData = make(map[string]string, len(r.ExtractedData))
	for k, v := range r.ExtractedData {
		out.ExtractedData[k] = v
	}
	out.ConfidencePerField = make(map[string]float64, len(r.ConfidencePerField))
	for k, v := range r.ConfidencePerField {
		out.ConfidencePerField[k] = v
	}
	out.ExtractedRules = append([]BusinessRule(nil), r.ExtractedRules...)
	out.StructuredExtraction.DetectedCues = append([]string(nil), r.StructuredExtraction.DetectedCues...)
	return &out
}
