package merge

import (
	"sort"

	"github.com/gridline/contract-engine/internal/types"
)

// fieldUniverse collects every field the result must mention: the requested
// field set plus anything a candidate or the AI produced beyond it.
func fieldUniverse(in Input) []string {
	seen := make(map[string]bool, len(in.Fields))
	var fields []string
	add := func(field string) {
		if field == "" || seen[field] {
			return
		}
		seen[field] = true
		fields = append(fields, field)
	}

	for _, field := range in.Fields {
		add(field)
	}
	for _, cand := range in.Candidates {
		add(cand.FieldName)
	}
	if in.AI != nil {
		extra := make([]string, 0, len(in.AI.ExtractedData))
		for field := range in.AI.ExtractedData {
			extra = append(extra, field)
		}
		sort.Strings(extra)
		for _, field := range extra {
			add(field)
		}
	}
	return fields
}

// firstPatternValues picks the first pattern candidate per field,
// preserving extractor registration order.
func firstPatternValues(candidates []types.CandidateField) map[string]string {
	values := make(map[string]string)
	for _, cand := range candidates {
		if cand.Method != types.MethodPattern || cand.RawValue == "" {
			continue
		}
		if _, exists := values[cand.FieldName]; !exists {
			values[cand.FieldName] = cand.RawValue
		}
	}
	return values
}

func unionRefs(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for _, ref := range a {
		seen[ref] = true
	}
	for _, ref := range b {
		seen[ref] = true
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
