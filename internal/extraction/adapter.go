// Package extraction normalizes AI-assisted contract extraction over the
// backend chain: it builds the extraction prompt, submits the document, and
// parses the structured response into typed results.
package extraction

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/gridline/contract-engine/internal/llm"
	"github.com/gridline/contract-engine/internal/prompts"
	"github.com/gridline/contract-engine/internal/types"
)

//go:embed extraction_response.schema.json
var responseSchema []byte

// Submitter is the slice of the backend chain the adapter depends on.
type Submitter interface {
	Submit(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Hints carries what the earlier pipeline layers already know about the
// document, so the prompt can ask for the right fields and let the model
// confirm or correct pattern candidates.
type Hints struct {
	DocumentType types.DocumentType
	Fields       []string
	Candidates   []types.CandidateField
	// Strict selects the re-prompt used after a response parse failure.
	Strict bool
}

// Result is the parsed outcome of one AI extraction call.
type Result struct {
	ExtractedData map[string]string
	Confidence    map[string]float64
	Rules         []types.BusinessRule
	RawNotes      string
	Citations     []string
	Usage         types.Usage
}

// Adapter submits documents to the backend chain and parses responses
// against the expected structured shape. Call failures propagate from the
// chain unchanged; malformed responses surface as *ResponseParseError.
type Adapter struct {
	chain  Submitter
	schema *gojsonschema.Schema
	log    zerolog.Logger
}

// NewAdapter builds an adapter over the given chain. The response schema is
// compiled once here.
func NewAdapter(chain Submitter, log zerolog.Logger) (*Adapter, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(responseSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile response schema: %w", err)
	}
	return &Adapter{chain: chain, schema: schema, log: log}, nil
}

// Extract submits the payload with an extraction prompt and parses the
// structured response. It never fabricates data: a chain failure or an
// unparseable response is returned as an error, not an empty result.
func (a *Adapter) Extract(ctx context.Context, payload llm.Payload, hints Hints) (*Result, error) {
	resp, err := a.chain.Submit(ctx, llm.Request{
		Payload:      payload,
		Instructions: buildInstructions(hints),
	})
	if err != nil {
		return nil, err
	}

	result, err := a.parseResponse(resp.StructuredText)
	if err != nil {
		a.log.Warn().Err(err).Msg("structured response failed validation")
		return nil, err
	}
	result.Usage = resp.Usage
	result.Citations = resp.Citations
	return result, nil
}

// buildInstructions renders the extraction prompt from the embedded
// templates.
func buildInstructions(hints Hints) string {
	key := "extract-contract-fields"
	if hints.Strict {
		key = "extract-contract-fields-strict"
	}
	template := prompts.MustGet("extraction.json", key)

	fieldList := make([]string, 0, len(hints.Fields))
	for _, field := range hints.Fields {
		fieldList = append(fieldList, "- "+field)
	}

	candidateLines := make([]string, 0, len(hints.Candidates))
	for _, cand := range hints.Candidates {
		candidateLines = append(candidateLines, fmt.Sprintf("- %s = %q (%s)", cand.FieldName, cand.RawValue, cand.Method))
	}
	if len(candidateLines) == 0 {
		candidateLines = append(candidateLines, "(none)")
	}

	return prompts.Format(template, map[string]string{
		"DocumentType": string(hints.DocumentType),
		"FieldList":    strings.Join(fieldList, "\n"),
		"Candidates":   strings.Join(candidateLines, "\n"),
	})
}

// wireResponse is the structured shape expected from the model.
type wireResponse struct {
	ExtractedData map[string]any     `json:"extractedData"`
	Confidence    map[string]float64 `json:"confidence"`
	Rules         []wireRule         `json:"rules"`
	Notes         string             `json:"notes"`
}

type wireRule struct {
	Category     string   `json:"category"`
	Statement    string   `json:"statement"`
	SourceFields []string `json:"source_fields"`
	Confidence   float64  `json:"confidence"`
}

// parseResponse validates the raw model output against the response schema
// and converts it to a typed Result.
func (a *Adapter) parseResponse(text string) (*Result, error) {
	validation, err := a.schema.Validate(gojsonschema.NewStringLoader(text))
	if err != nil {
		return nil, &ResponseParseError{Message: "response is not valid JSON", Cause: err}
	}
	if !validation.Valid() {
		msgs := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, &ResponseParseError{Message: "response does not match expected shape: " + strings.Join(msgs, "; ")}
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, &ResponseParseError{Message: "failed to decode response", Cause: err}
	}

	result := &Result{
		ExtractedData: make(map[string]string, len(wire.ExtractedData)),
		Confidence:    make(map[string]float64, len(wire.ExtractedData)),
		RawNotes:      strings.TrimSpace(wire.Notes),
	}
	for field, value := range wire.ExtractedData {
		str := stringifyValue(value)
		if str == "" {
			continue
		}
		result.ExtractedData[field] = str
		// A value the model reported without a confidence entry is kept at
		// zero confidence; the merge floor then prefers pattern candidates.
		result.Confidence[field] = wire.Confidence[field]
	}

	for _, rule := range wire.Rules {
		if strings.TrimSpace(rule.Statement) == "" {
			continue
		}
		result.Rules = append(result.Rules, types.BusinessRule{
			Category:        types.RuleCategory(rule.Category),
			Statement:       rule.Statement,
			SourceFieldRefs: rule.SourceFields,
			Confidence:      rule.Confidence,
		}.Normalize())
	}

	return result, nil
}

// stringifyValue renders a schema-permitted value (string or number) as the
// canonical string form stored in ExtractedData.
func stringifyValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
