package imaging

import "fmt"

// ValidationError means the upload violates a hard limit (absent, oversized,
// undecodable, or incompressible). The user must supply a different image or
// switch to pasting text.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("image validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("image validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
