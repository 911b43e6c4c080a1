package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend returns scripted outcomes in call order, then repeats the
// last one.
type fakeBackend struct {
	name     string
	outcomes []error // nil means success
	calls    int
	requests []Request
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Submit(_ context.Context, req Request) (*Response, error) {
	f.requests = append(f.requests, req)
	i := f.calls
	if i >= len(f.outcomes) {
		i = len(f.outcomes) - 1
	}
	f.calls++
	if err := f.outcomes[i]; err != nil {
		return nil, err
	}
	return &Response{StructuredText: `{"from":"` + f.name + `"}`}, nil
}

func backendErr(name string, kind ErrorKind) error {
	return &BackendError{Backend: name, Kind: kind}
}

func newTestChain(t *testing.T, config ChainConfig, backends ...Backend) *Chain {
	t.Helper()
	chain, err := NewChain(backends, config, zerolog.Nop())
	require.NoError(t, err)
	chain.sleep = func(context.Context, time.Duration) error { return nil }
	return chain
}

func textRequest(text string) Request {
	return Request{Payload: Payload{Text: text}, Instructions: "extract"}
}

func TestChain_FirstSuccessWins(t *testing.T) {
	a := &fakeBackend{name: "a", outcomes: []error{nil}}
	b := &fakeBackend{name: "b", outcomes: []error{nil}}
	chain := newTestChain(t, DefaultChainConfig(), a, b)

	resp, err := chain.Submit(context.Background(), textRequest("doc"))
	require.NoError(t, err)
	assert.Contains(t, resp.StructuredText, "a")
	assert.Equal(t, 0, b.calls, "second backend is never consulted")
}

func TestChain_ThrottledRetriesOnceThenFallsThrough(t *testing.T) {
	// A is throttled twice, exceeding its single-retry budget; B succeeds.
	a := &fakeBackend{name: "a", outcomes: []error{backendErr("a", KindThrottled), backendErr("a", KindThrottled)}}
	b := &fakeBackend{name: "b", outcomes: []error{nil}}
	chain := newTestChain(t, DefaultChainConfig(), a, b)

	resp, err := chain.Submit(context.Background(), textRequest("doc"))
	require.NoError(t, err)
	assert.Contains(t, resp.StructuredText, "b")
	assert.Equal(t, 2, a.calls, "throttled backend gets exactly one retry")
	assert.Equal(t, 1, b.calls)
}

func TestChain_ThrottledRetrySucceeds(t *testing.T) {
	a := &fakeBackend{name: "a", outcomes: []error{backendErr("a", KindThrottled), nil}}
	b := &fakeBackend{name: "b", outcomes: []error{nil}}
	chain := newTestChain(t, DefaultChainConfig(), a, b)

	resp, err := chain.Submit(context.Background(), textRequest("doc"))
	require.NoError(t, err)
	assert.Contains(t, resp.StructuredText, "a")
	assert.Equal(t, 0, b.calls)
}

func TestChain_TimeoutRetriesOnce(t *testing.T) {
	a := &fakeBackend{name: "a", outcomes: []error{backendErr("a", KindTimeout), nil}}
	b := &fakeBackend{name: "b", outcomes: []error{nil}}
	chain := newTestChain(t, DefaultChainConfig(), a, b)

	resp, err := chain.Submit(context.Background(), textRequest("doc"))
	require.NoError(t, err)
	assert.Contains(t, resp.StructuredText, "a")
	assert.Equal(t, 2, a.calls)
	assert.Equal(t, 0, b.calls)
}

func TestChain_UnavailableFallsThroughWithoutRetry(t *testing.T) {
	// An unavailable backend is not retried; the chain moves on at once.
	a := &fakeBackend{name: "a", outcomes: []error{backendErr("a", KindUnavailable), backendErr("a", KindUnavailable)}}
	b := &fakeBackend{name: "b", outcomes: []error{nil}}
	chain := newTestChain(t, DefaultChainConfig(), a, b)

	resp, err := chain.Submit(context.Background(), textRequest("doc"))
	require.NoError(t, err)
	assert.Contains(t, resp.StructuredText, "b")
	assert.Equal(t, 1, a.calls, "unavailable backend must not be retried")
	assert.Equal(t, 1, b.calls)
}

func TestChain_AuthErrorFallsThroughWithoutRetry(t *testing.T) {
	a := &fakeBackend{name: "a", outcomes: []error{backendErr("a", KindAuth)}}
	b := &fakeBackend{name: "b", outcomes: []error{nil}}
	chain := newTestChain(t, DefaultChainConfig(), a, b)

	resp, err := chain.Submit(context.Background(), textRequest("doc"))
	require.NoError(t, err)
	assert.Contains(t, resp.StructuredText, "b")
	assert.Equal(t, 1, a.calls, "non-transient failure is not retried")
}

func TestChain_OversizedPayloadRejectedBeforeAnyCall(t *testing.T) {
	a := &fakeBackend{name: "a", outcomes: []error{nil}}
	config := DefaultChainConfig()
	config.HardMaxSizeBytes = 20 << 20
	chain := newTestChain(t, config, a)

	payload := Payload{Bytes: make([]byte, 25<<20)}
	_, err := chain.Submit(context.Background(), Request{Payload: payload})
	require.Error(t, err)
	assert.True(t, PayloadTooLarge(err))
	assert.Equal(t, 0, a.calls, "no network call for an oversized payload")
}

func TestChain_UnsupportedPayloadFallsThrough(t *testing.T) {
	// A backend that cannot take the payload's format is a capability
	// mismatch, not an oversized document: the next backend still gets it.
	a := &fakeBackend{name: "a", outcomes: []error{backendErr("a", KindUnsupportedPayload)}}
	b := &fakeBackend{name: "b", outcomes: []error{nil}}
	chain := newTestChain(t, DefaultChainConfig(), a, b)

	resp, err := chain.Submit(context.Background(), Request{Payload: Payload{Bytes: []byte("%PDF-1.7 fake")}})
	require.NoError(t, err)
	assert.Contains(t, resp.StructuredText, "b")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestChain_PayloadTooLargeFromBackendIsFatal(t *testing.T) {
	a := &fakeBackend{name: "a", outcomes: []error{backendErr("a", KindPayloadTooLarge)}}
	b := &fakeBackend{name: "b", outcomes: []error{nil}}
	chain := newTestChain(t, DefaultChainConfig(), a, b)

	_, err := chain.Submit(context.Background(), textRequest("doc"))
	require.Error(t, err)
	assert.True(t, PayloadTooLarge(err))
	assert.Equal(t, 0, b.calls, "no backend can serve an oversized document")
}

func TestChain_AllBackendsExhausted(t *testing.T) {
	a := &fakeBackend{name: "a", outcomes: []error{backendErr("a", KindThrottled)}}
	b := &fakeBackend{name: "b", outcomes: []error{backendErr("b", KindAuth)}}
	chain := newTestChain(t, DefaultChainConfig(), a, b)

	_, err := chain.Submit(context.Background(), textRequest("doc"))
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	// A's initial attempt, A's retry, then B.
	require.Len(t, exhausted.Attempts, 3)
	assert.Equal(t, "a", exhausted.Attempts[0].Backend)
	assert.False(t, exhausted.Attempts[0].Retry)
	assert.True(t, exhausted.Attempts[1].Retry)
	assert.Equal(t, "b", exhausted.Attempts[2].Backend)
}

func TestChain_SizeRoutingSetsCitations(t *testing.T) {
	a := &fakeBackend{name: "a", outcomes: []error{nil, nil}}
	config := ChainConfig{SizeThresholdBytes: 100, HardMaxSizeBytes: 1000, RetryBackoff: time.Millisecond}
	chain := newTestChain(t, config, a)

	_, err := chain.Submit(context.Background(), textRequest("small"))
	require.NoError(t, err)
	assert.True(t, a.requests[0].WantCitations, "small path requests citations")

	large := textRequest(string(make([]byte, 500)))
	_, err = chain.Submit(context.Background(), large)
	require.NoError(t, err)
	assert.False(t, a.requests[1].WantCitations, "large path skips citations")
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(backendErr("x", KindThrottled)))
	assert.True(t, Transient(backendErr("x", KindTimeout)))
	assert.False(t, Transient(backendErr("x", KindUnavailable)))
	assert.False(t, Transient(backendErr("x", KindAuth)))
	assert.False(t, Transient(backendErr("x", KindUnsupportedPayload)))
	assert.False(t, Transient(backendErr("x", KindPayloadTooLarge)))
	assert.False(t, Transient(errors.New("plain")))
}

func TestNewChain_Validation(t *testing.T) {
	_, err := NewChain(nil, DefaultChainConfig(), zerolog.Nop())
	assert.Error(t, err)

	_, err = NewChain([]Backend{&fakeBackend{name: "a", outcomes: []error{nil}}}, ChainConfig{}, zerolog.Nop())
	assert.Error(t, err, "hard cap must be configured")
}
