package guard

import "fmt"

// SuspiciousInputError means the input failed the menu-likeness heuristic.
// The user must supply different input; no provider call was made.
type SuspiciousInputError struct {
	Source  string // "text" or "image"
	Message string
}

func (e *SuspiciousInputError) Error() string {
	return fmt.Sprintf("that %s %s", e.Source, e.Message)
}
