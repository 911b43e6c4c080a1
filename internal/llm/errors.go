package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a backend failure for retry/fallthrough policy.
type ErrorKind string

// Backend failure kinds.
const (
	KindThrottled          ErrorKind = "throttled"
	KindTimeout            ErrorKind = "timeout"
	KindUnavailable        ErrorKind = "unavailable"
	KindAuth               ErrorKind = "auth"
	KindUnsupportedPayload ErrorKind = "unsupported_payload"
	KindPayloadTooLarge    ErrorKind = "payload_too_large"
)

// BackendError wraps a failure from one backend with its policy
// classification.
type BackendError struct {
	Backend string
	Kind    ErrorKind
	Cause   error
}

func (e *BackendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend %s: %s: %v", e.Backend, e.Kind, e.Cause)
	}
	return fmt.Sprintf("backend %s: %s", e.Backend, e.Kind)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// Transient reports whether the error warrants a single retry on the same
// backend before falling through to the next one. Only throttling and
// timeouts qualify; an unavailable backend falls through immediately, as do
// auth and payload errors.
func Transient(err error) bool {
	var be *BackendError
	if !errors.As(err, &be) {
		return false
	}
	return be.Kind == KindThrottled || be.Kind == KindTimeout
}

// PayloadTooLarge reports whether the error means no backend can serve the
// document at all.
func PayloadTooLarge(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Kind == KindPayloadTooLarge
}

// Attempt records one backend call made by the chain, kept for audit on
// total failure.
type Attempt struct {
	Backend string
	Retry   bool
	Err     error
}

// ExhaustedError is returned when every configured backend has failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	sb.WriteString("all backends exhausted")
	for _, a := range e.Attempts {
		sb.WriteString(fmt.Sprintf("; %s", a.Backend))
		if a.Retry {
			sb.WriteString(" (retry)")
		}
		if a.Err != nil {
			sb.WriteString(": " + a.Err.Error())
		}
	}
	return sb.String()
}
