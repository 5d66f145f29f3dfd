package vision

import "fmt"

// ExtractionError means the vision call failed, returned non-JSON, or the
// extracted result did not pass the caller's confidence gate. RawOutput holds
// the unparsed model output when one exists.
type ExtractionError struct {
	Message   string
	RawOutput string
	Cause     error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vision extraction error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("vision extraction error: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
