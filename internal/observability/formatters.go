// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gridline/contract-engine/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintExtractionResult outputs a human-readable summary of one result.
func (p *Printer) PrintExtractionResult(result *types.ExtractionResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Type:       %s (%.0f%%)\n",
		result.StructuredExtraction.DocumentType,
		result.StructuredExtraction.Confidence*100))
	sb.WriteString("\n")

	fields := make([]string, 0, len(result.ExtractedData))
	for field := range result.ExtractedData {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		value := result.ExtractedData[field]
		if !types.Resolved(value) {
			sb.WriteString(fmt.Sprintf("  %-26s (unresolved)\n", field))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-26s %s  [%.2f]\n", field, value, result.ConfidencePerField[field]))
	}

	if len(result.ExtractedRules) > 0 {
		sb.WriteString("\nRules:\n")
		for _, rule := range result.ExtractedRules {
			sb.WriteString(fmt.Sprintf("  • [%s] %s\n", rule.Category, rule.Statement))
		}
	}

	p.printBox(fmt.Sprintf("Extraction: %s", result.DocumentID), sb.String())
}

// PrintBatchJob outputs a summary of a finished batch job.
func (p *Printer) PrintBatchJob(job *types.BatchJob) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:     %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("Documents:  %d\n", len(job.DocumentIDs)))
	sb.WriteString(fmt.Sprintf("Failures:   %d\n", job.FailureCount()))
	sb.WriteString(fmt.Sprintf("Usage:      %d in / %d out\n", job.Usage.InputUnits, job.Usage.OutputUnits))

	for _, documentID := range job.DocumentIDs {
		outcome, ok := job.Outcomes[documentID]
		switch {
		case !ok:
			sb.WriteString(fmt.Sprintf("  %-26s skipped\n", documentID))
		case outcome.Failed():
			sb.WriteString(fmt.Sprintf("  %-26s FAILED: %s\n", documentID, outcome.Failure.Cause))
		default:
			sb.WriteString(fmt.Sprintf("  %-26s ok (%s)\n", documentID, outcome.Result.StructuredExtraction.DocumentType))
		}
	}

	p.printBox(fmt.Sprintf("Batch %s", job.JobID), sb.String())
}
