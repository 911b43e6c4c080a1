// Package ingestion loads contract documents from disk and normalizes them
// for classification and extraction.
package ingestion

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`[ \t]{2,}`)

// CleanText normalizes text content while preserving document structure:
// line endings become LF, trailing whitespace is trimmed, runs of spaces
// collapse, and blank-line runs are capped at two.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			cleaned = append(cleaned, "")
			continue
		}
		cleaned = append(cleaned, multiSpace.ReplaceAllString(line, " "))
	}

	result := strings.Join(cleaned, "\n")
	result = capBlankLines(result)
	return strings.TrimSpace(result)
}

// capBlankLines limits consecutive blank lines to two.
func capBlankLines(content string) string {
	for strings.Contains(content, "\n\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n\n", "\n\n\n")
	}
	return content
}
