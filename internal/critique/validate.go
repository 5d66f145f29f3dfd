package critique

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is the full critique shape contract. It is embedded so the same
// document drives both the provider's schema-constrained decoding and the
// independent re-validation below.
//
//go:embed critique_schema.json
var Schema []byte

// validateShape re-validates raw model output against the shape contract,
// independently of whatever validation the provider claims to perform. A nil
// return guarantees the raw JSON unmarshals cleanly into Result.
func validateShape(raw string) error {
	// Distinguish unparseable bodies from well-formed JSON with a bad shape.
	var probe any
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return &InvalidJSONError{RawOutput: raw, Cause: err}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(Schema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return &InvalidJSONError{
			RawOutput: raw,
			Message:   fmt.Sprintf("JSON shape was invalid: %v", err),
			Cause:     err,
		}
	}
	if result.Valid() {
		return nil
	}

	var sb strings.Builder
	for i, desc := range result.Errors() {
		if i > 0 {
			sb.WriteString("; ")
		}
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		sb.WriteString(fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return &InvalidJSONError{
		RawOutput: raw,
		Message:   fmt.Sprintf("JSON shape was invalid: %s", sb.String()),
	}
}
