// Package llm abstracts the AI inference backends used for contract
// extraction behind a single Submit contract, and owns the fallback, retry,
// and payload-size policy for calling them.
package llm

import (
	"context"

	"github.com/gridline/contract-engine/internal/types"
)

// Payload carries the document to extract from. Exactly one of Text or
// Bytes is expected to be set; Bytes is used for documents that arrived as
// raw PDF content.
type Payload struct {
	Text  string
	Bytes []byte
}

// Size returns the payload size in bytes for routing and cap decisions.
func (p Payload) Size() int {
	if len(p.Bytes) > 0 {
		return len(p.Bytes)
	}
	return len(p.Text)
}

// Request is one inference call: a document payload plus extraction
// instructions. WantCitations selects the citation-capable path on backends
// that support it; the chain sets it from payload size.
type Request struct {
	Payload       Payload
	Instructions  string
	WantCitations bool
}

// Response is the uniform shape every backend returns. StructuredText is
// the raw model output; parsing it into the expected contract is the
// caller's concern, so parse failures stay distinguishable from call
// failures.
type Response struct {
	StructuredText string
	Usage          types.Usage
	Citations      []string
}

// Backend is one interchangeable AI inference capability. Implementations
// classify their failures as *BackendError so the chain can apply retry
// policy uniformly; adding a backend requires no chain changes.
type Backend interface {
	Name() string
	Submit(ctx context.Context, req Request) (*Response, error)
}
