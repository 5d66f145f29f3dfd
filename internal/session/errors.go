package session

import (
	"fmt"
	"time"
)

// CooldownError means a request arrived inside the cooldown window. Wait is
// the remaining time, rounded up to whole seconds.
type CooldownError struct {
	Wait time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %ds before sending another request", int(e.Wait.Seconds()))
}

// ValidationError means the request input violates a hard requirement (empty
// text, missing upload, nothing to retry).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
