package types

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// RuleCategory groups business rules by the contractual concern they describe.
type RuleCategory string

// Rule category constants.
const (
	RuleFinancial RuleCategory = "financial"
	RuleTechnical RuleCategory = "technical"
	RuleOperating RuleCategory = "operating"
)

// BusinessRule is a discrete contractual constraint derived from a document.
// Rules are deduplicated by Fingerprint, which hashes the case-folded
// category together with the normalized statement.
type BusinessRule struct {
	Category        RuleCategory `json:"category"`
	Statement       string       `json:"statement"`
	SourceFieldRefs []string     `json:"source_field_refs"`
	Confidence      float64      `json:"confidence"`
}

// Normalize trims the statement, case-folds the category, and sorts the
// source field references. It returns a copy; the receiver is unchanged.
func (r BusinessRule) Normalize() BusinessRule {
	out := r
	out.Category = RuleCategory(strings.ToLower(strings.TrimSpace(string(r.Category))))
	out.Statement = strings.TrimSpace(r.Statement)
	out.SourceFieldRefs = append([]string(nil), r.SourceFieldRefs...)
	sort.Strings(out.SourceFieldRefs)
	return out
}

// Fingerprint returns the dedup identity of the rule. Two rules whose
// statements differ only in case or surrounding/internal whitespace share a
// fingerprint.
func (r BusinessRule) Fingerprint() string {
	category := strings.ToLower(strings.TrimSpace(string(r.Category)))
	statement := strings.ToLower(strings.Join(strings.Fields(r.Statement), " "))
	sum := sha256.Sum256([]byte(category + "\x00" + statement))
	return hex.EncodeToString(sum[:])
}
