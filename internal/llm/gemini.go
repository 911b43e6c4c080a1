package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiBackend submits extraction requests to Google Gemini.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini-backed inference backend.
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, &BackendError{Backend: "gemini", Kind: KindAuth, Cause: fmt.Errorf("API key is required")}
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// Name identifies the backend in chain configuration and attempt records.
func (b *GeminiBackend) Name() string { return "gemini" }

// Submit sends the document and instructions to Gemini and returns the raw
// structured text plus usage accounting.
func (b *GeminiBackend) Submit(ctx context.Context, req Request) (*Response, error) {
	model := b.client.GenerativeModel(b.model)
	model.SetTemperature(0.1) // Low temperature for consistent output
	model.ResponseMIMEType = "application/json"

	parts := []genai.Part{genai.Text(req.Instructions)}
	if len(req.Payload.Bytes) > 0 {
		parts = append(parts, genai.Blob{MIMEType: "application/pdf", Data: req.Payload.Bytes})
	} else {
		parts = append(parts, genai.Text(req.Payload.Text))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, b.classify(err)
	}

	text, err := geminiResponseText(resp)
	if err != nil {
		return nil, &BackendError{Backend: b.Name(), Kind: KindUnavailable, Cause: err}
	}

	out := &Response{StructuredText: CleanJSONBlock(text)}
	if resp.UsageMetadata != nil {
		out.Usage.InputUnits = int(resp.UsageMetadata.PromptTokenCount)
		out.Usage.OutputUnits = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if req.WantCitations && len(resp.Candidates) > 0 && resp.Candidates[0].CitationMetadata != nil {
		for _, src := range resp.Candidates[0].CitationMetadata.CitationSources {
			if src.URI != nil {
				out.Citations = append(out.Citations, *src.URI)
			}
		}
	}
	return out, nil
}

// Close releases the underlying client.
func (b *GeminiBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// classify maps Gemini API failures onto the chain's error kinds.
func (b *GeminiBackend) classify(err error) error {
	kind := KindUnavailable
	var apiErr *googleapi.Error
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		switch apiErr.Code {
		case 429:
			kind = KindThrottled
		case 401, 403:
			kind = KindAuth
		case 413:
			kind = KindPayloadTooLarge
		}
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &BackendError{Backend: b.Name(), Kind: kind, Cause: err}
}

// geminiResponseText joins the text parts of the first candidate.
func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
