package groq

import (
	"errors"
	"fmt"
	"strings"
)

// RateLimitError means the provider signaled throttling. Callers should wait
// and retry; fallback or retry chains must short-circuit immediately.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limit: %s", e.Message)
}

// APICallError is any other provider or transport failure.
type APICallError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("API call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// isRateLimitMessage is the substring fallback for transports that surface
// throttling only through error text. Status-code classification runs first;
// this pattern set is provider-message dependent and may need updating.
func isRateLimitMessage(text string) bool {
	lowered := strings.ToLower(text)
	return strings.Contains(lowered, "rate limit") ||
		strings.Contains(lowered, "429") ||
		strings.Contains(lowered, "too many requests")
}
