package types

// ExtractionMethod identifies which layer produced a candidate value.
type ExtractionMethod string

// Extraction method constants.
const (
	MethodPattern ExtractionMethod = "pattern"
	MethodAI      ExtractionMethod = "ai"
)

// SourceSpan locates a candidate value inside the source text.
type SourceSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// CandidateField is a provisional field value produced by one extraction
// method. Multiple candidates may exist for the same field; they are not
// reconciled until the merge engine runs, so provenance survives for
// debugging.
type CandidateField struct {
	FieldName string           `json:"field_name"`
	RawValue  string           `json:"raw_value"`
	Span      *SourceSpan      `json:"span,omitempty"`
	Method    ExtractionMethod `json:"method"`
}
