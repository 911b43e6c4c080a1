package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/contract-engine/internal/llm"
	"github.com/gridline/contract-engine/internal/types"
)

// fakeSubmitter returns a canned response and records the request it saw.
type fakeSubmitter struct {
	response *llm.Response
	err      error
	lastReq  llm.Request
}

func (f *fakeSubmitter) Submit(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func newTestAdapter(t *testing.T, sub Submitter) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(sub, zerolog.Nop())
	require.NoError(t, err)
	return adapter
}

func TestAdapter_Extract_ValidResponse(t *testing.T) {
	sub := &fakeSubmitter{response: &llm.Response{
		StructuredText: `{
			"extractedData": {"capacity_kw": "450", "term_years": 20, "counterparty": ""},
			"confidence": {"capacity_kw": 0.95},
			"rules": [
				{"category": "financial", "statement": "Rate escalates 2.5% annually.", "source_fields": ["escalator_percent"], "confidence": 0.8},
				{"category": "technical", "statement": "   "}
			],
			"notes": "term inferred from expiry date"
		}`,
		Usage:     types.Usage{InputUnits: 1200, OutputUnits: 340},
		Citations: []string{"p3"},
	}}
	adapter := newTestAdapter(t, sub)

	result, err := adapter.Extract(context.Background(), llm.Payload{Text: "doc"}, Hints{
		DocumentType: types.DocTypeLeaseSupplement,
		Fields:       []string{"capacity_kw", "term_years"},
	})
	require.NoError(t, err)

	assert.Equal(t, "450", result.ExtractedData["capacity_kw"])
	assert.Equal(t, "20", result.ExtractedData["term_years"], "numbers are stringified")
	assert.NotContains(t, result.ExtractedData, "counterparty", "empty values are dropped")

	assert.InDelta(t, 0.95, result.Confidence["capacity_kw"], 0.001)
	assert.Zero(t, result.Confidence["term_years"], "missing confidence entry reads as zero")

	require.Len(t, result.Rules, 1, "blank statements are dropped")
	assert.Equal(t, types.RuleFinancial, result.Rules[0].Category)
	assert.Equal(t, []string{"escalator_percent"}, result.Rules[0].SourceFieldRefs)

	assert.Equal(t, "term inferred from expiry date", result.RawNotes)
	assert.Equal(t, types.Usage{InputUnits: 1200, OutputUnits: 340}, result.Usage)
	assert.Equal(t, []string{"p3"}, result.Citations)
}

func TestAdapter_Extract_PromptCarriesHints(t *testing.T) {
	sub := &fakeSubmitter{response: &llm.Response{
		StructuredText: `{"extractedData": {}, "confidence": {}}`,
	}}
	adapter := newTestAdapter(t, sub)

	_, err := adapter.Extract(context.Background(), llm.Payload{Text: "doc"}, Hints{
		DocumentType: types.DocTypePowerPurchase,
		Fields:       []string{"rate_per_kwh"},
		Candidates: []types.CandidateField{
			{FieldName: "rate_per_kwh", RawValue: "$0.085/kWh", Method: types.MethodPattern},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, sub.lastReq.Instructions, "power_purchase")
	assert.Contains(t, sub.lastReq.Instructions, "- rate_per_kwh")
	assert.Contains(t, sub.lastReq.Instructions, "$0.085/kWh")
}

func TestAdapter_Extract_StrictReprompt(t *testing.T) {
	sub := &fakeSubmitter{response: &llm.Response{
		StructuredText: `{"extractedData": {}, "confidence": {}}`,
	}}
	adapter := newTestAdapter(t, sub)

	_, err := adapter.Extract(context.Background(), llm.Payload{Text: "doc"}, Hints{
		DocumentType: types.DocTypeEPCAddendum,
		Strict:       true,
	})
	require.NoError(t, err)
	assert.Contains(t, sub.lastReq.Instructions, "ONLY the JSON object")
}

func TestAdapter_Extract_SchemaViolation(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "not JSON at all", text: "I could not process this document."},
		{name: "missing required keys", text: `{"rules": []}`},
		{name: "confidence out of range", text: `{"extractedData": {}, "confidence": {"a": 1.4}}`},
		{name: "boolean field value", text: `{"extractedData": {"a": true}, "confidence": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{response: &llm.Response{StructuredText: tt.text}}
			adapter := newTestAdapter(t, sub)

			_, err := adapter.Extract(context.Background(), llm.Payload{Text: "doc"}, Hints{})
			require.Error(t, err)
			var parseErr *ResponseParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

func TestAdapter_Extract_ChainErrorPropagates(t *testing.T) {
	chainErr := &llm.ExhaustedError{Attempts: []llm.Attempt{{Backend: "a"}}}
	sub := &fakeSubmitter{err: chainErr}
	adapter := newTestAdapter(t, sub)

	_, err := adapter.Extract(context.Background(), llm.Payload{Text: "doc"}, Hints{})
	require.Error(t, err)
	var exhausted *llm.ExhaustedError
	assert.True(t, errors.As(err, &exhausted), "chain failures pass through untouched")
	var parseErr *ResponseParseError
	assert.False(t, errors.As(err, &parseErr))
}
