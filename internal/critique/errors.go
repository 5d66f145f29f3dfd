package critique

// InvalidJSONError means the provider responded but the body either failed to
// parse as JSON or failed shape validation. RawOutput always carries the full
// model output so callers can display it and offer a retry.
type InvalidJSONError struct {
	RawOutput string
	Message   string
	Cause     error
}

func (e *InvalidJSONError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "model returned invalid JSON"
}

func (e *InvalidJSONError) Unwrap() error {
	return e.Cause
}
