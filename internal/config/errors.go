package config

import "fmt"

// SetupError represents a missing or unusable provider credential. It is fatal
// for the session until corrected externally, but is never raised at import
// time, only when a call is attempted.
type SetupError struct {
	Message string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup error: %s", e.Message)
}
