package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/gridline/contract-engine/internal/types"
)

// OpenAIBackend submits extraction requests to the OpenAI chat completions
// API. It works on text only: raw PDF bytes are rejected as an unsupported
// payload so the chain falls through to a backend that accepts them.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates an OpenAI-backed inference backend.
func NewOpenAIBackend(apiKey, model string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, &BackendError{Backend: "openai", Kind: KindAuth, Cause: fmt.Errorf("API key is required")}
	}
	if model == "" {
		model = openai.GPT4TurboPreview
	}
	return &OpenAIBackend{client: openai.NewClient(apiKey), model: model}, nil
}

// Name identifies the backend in chain configuration and attempt records.
func (b *OpenAIBackend) Name() string { return "openai" }

// Submit sends the document text and instructions as a chat completion and
// returns the raw structured text plus usage accounting.
func (b *OpenAIBackend) Submit(ctx context.Context, req Request) (*Response, error) {
	if len(req.Payload.Bytes) > 0 {
		return nil, &BackendError{
			Backend: b.Name(),
			Kind:    KindUnsupportedPayload,
			Cause:   fmt.Errorf("binary document payloads are not supported"),
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Instructions},
			{Role: openai.ChatMessageRoleUser, Content: req.Payload.Text},
		},
	})
	if err != nil {
		return nil, b.classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &BackendError{Backend: b.Name(), Kind: KindUnavailable, Cause: fmt.Errorf("no choices in response")}
	}

	return &Response{
		StructuredText: CleanJSONBlock(resp.Choices[0].Message.Content),
		Usage: types.Usage{
			InputUnits:  resp.Usage.PromptTokens,
			OutputUnits: resp.Usage.CompletionTokens,
		},
	}, nil
}

// classify maps OpenAI API failures onto the chain's error kinds.
func (b *OpenAIBackend) classify(err error) error {
	kind := KindUnavailable
	var apiErr *openai.APIError
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			kind = KindThrottled
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = KindAuth
		case http.StatusRequestEntityTooLarge:
			kind = KindPayloadTooLarge
		}
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &BackendError{Backend: b.Name(), Kind: kind, Cause: err}
}
