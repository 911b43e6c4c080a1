package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ChainConfig tunes the fallback chain's size routing and retry policy.
type ChainConfig struct {
	// SizeThresholdBytes splits the small path (citations requested) from
	// the large path (no citations).
	SizeThresholdBytes int
	// HardMaxSizeBytes rejects a payload before any network call.
	HardMaxSizeBytes int
	// RetryBackoff is the wait before the single retry a transient failure
	// earns on its backend.
	RetryBackoff time.Duration
}

// DefaultChainConfig returns conservative defaults sized for contract
// documents.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		SizeThresholdBytes: 4 << 20,  // 4 MB
		HardMaxSizeBytes:   20 << 20, // 20 MB
		RetryBackoff:       2 * time.Second,
	}
}

// Chain tries an ordered list of backends and returns the first success.
// A throttled or timed-out backend earns exactly one retry with backoff
// before the chain falls through; every other failure, including a backend
// that cannot accept the payload's format, falls through immediately. The
// exception is payload-too-large, which is a property of the document, not
// the backend: no backend can serve it, so it fails the call outright. The
// chain never fabricates data: if every backend fails it returns
// *ExhaustedError.
type Chain struct {
	backends []Backend
	config   ChainConfig
	log      zerolog.Logger

	// sleep is swappable in tests.
	sleep func(context.Context, time.Duration) error
}

// NewChain builds a chain over the given backends, tried in order.
func NewChain(backends []Backend, config ChainConfig, log zerolog.Logger) (*Chain, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one backend is required")
	}
	if config.HardMaxSizeBytes <= 0 {
		return nil, fmt.Errorf("hard max size must be positive, got %d", config.HardMaxSizeBytes)
	}
	return &Chain{
		backends: append([]Backend(nil), backends...),
		config:   config,
		log:      log,
		sleep:    sleepCtx,
	}, nil
}

// Submit routes the request by payload size and walks the backend list.
func (c *Chain) Submit(ctx context.Context, req Request) (*Response, error) {
	size := req.Payload.Size()
	if size > c.config.HardMaxSizeBytes {
		return nil, &BackendError{
			Backend: "chain",
			Kind:    KindPayloadTooLarge,
			Cause:   fmt.Errorf("payload is %d bytes, hard cap is %d", size, c.config.HardMaxSizeBytes),
		}
	}
	req.WantCitations = size <= c.config.SizeThresholdBytes

	var attempts []Attempt
	for _, backend := range c.backends {
		resp, err := backend.Submit(ctx, req)
		if err == nil {
			return resp, nil
		}
		attempts = append(attempts, Attempt{Backend: backend.Name(), Err: err})

		if PayloadTooLarge(err) {
			return nil, err
		}
		if !Transient(err) {
			c.log.Warn().Str("backend", backend.Name()).Err(err).Msg("backend failed, falling through")
			continue
		}

		c.log.Warn().Str("backend", backend.Name()).Err(err).Dur("backoff", c.config.RetryBackoff).Msg("backend throttled, retrying once")
		if err := c.sleep(ctx, c.config.RetryBackoff); err != nil {
			return nil, err
		}
		resp, err = backend.Submit(ctx, req)
		if err == nil {
			return resp, nil
		}
		attempts = append(attempts, Attempt{Backend: backend.Name(), Retry: true, Err: err})
		if PayloadTooLarge(err) {
			return nil, err
		}
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

// Backends returns the configured backend names in order.
func (c *Chain) Backends() []string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name()
	}
	return names
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
