package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	prompt, err := Get("extraction.json", "extract-contract-fields")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.DocumentType}}")
	assert.Contains(t, prompt, "{{.FieldList}}")
	assert.Contains(t, prompt, "{{.Candidates}}")

	strict, err := Get("extraction.json", "extract-contract-fields-strict")
	require.NoError(t, err)
	assert.Contains(t, strict, "{{.DocumentType}}")

	_, err = Get("extraction.json", "no-such-key")
	assert.Error(t, err)

	_, err = Get("missing.json", "extract-contract-fields")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	out := Format("Type: {{.DocumentType}}; fields:\n{{.FieldList}}", map[string]string{
		"DocumentType": "lease_supplement",
		"FieldList":    "- capacity_kw",
	})
	assert.Equal(t, "Type: lease_supplement; fields:\n- capacity_kw", out)
}
