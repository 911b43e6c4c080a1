package extraction

import "fmt"

// ResponseParseError means a backend answered, but with text that is not
// valid per the expected structured shape. It is distinct from backend call
// failures so callers can choose between retrying with a stricter prompt
// and accepting pattern-only results.
type ResponseParseError struct {
	Message string
	Cause   error
}

func (e *ResponseParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("response parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("response parse error: %s", e.Message)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Cause
}
