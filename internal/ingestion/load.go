package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gridline/contract-engine/internal/engine"
	"github.com/gridline/contract-engine/internal/llm"
)

// LoadFile reads a document from disk and returns it ready for extraction.
// HTML files are reduced to their text content; PDFs pass through as raw
// bytes for the backend to interpret; everything else is treated as text.
func LoadFile(path string) (engine.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Document{}, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	doc := engine.Document{ID: filepath.Base(path)}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err := ExtractHTMLText(string(data))
		if err != nil {
			return engine.Document{}, fmt.Errorf("failed to parse HTML document %s: %w", path, err)
		}
		doc.Payload = llm.Payload{Text: text}
	case ".pdf":
		doc.Payload = llm.Payload{Bytes: data}
	default:
		doc.Payload = llm.Payload{Text: CleanText(string(data))}
	}
	return doc, nil
}

// ExtractHTMLText strips markup and returns normalized text. Script and
// style bodies are removed before text extraction.
func ExtractHTMLText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		sb.WriteString(sel.Text())
		sb.WriteString("\n")
	})
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		// Fragment without a body element.
		text = doc.Text()
	}
	return CleanText(text), nil
}

// DirectoryLoader resolves document IDs to files under a base directory,
// satisfying the batch orchestrator's Loader contract.
type DirectoryLoader struct {
	BaseDir string
}

// Load reads the document whose ID is a file name under BaseDir.
func (l DirectoryLoader) Load(_ context.Context, documentID string) (engine.Document, error) {
	doc, err := LoadFile(filepath.Join(l.BaseDir, documentID))
	if err != nil {
		return engine.Document{}, err
	}
	doc.ID = documentID
	return doc, nil
}
