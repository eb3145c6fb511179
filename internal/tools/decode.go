package tools

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// decodeInput decodes a dynamic tool input map into a typed parameter
// struct. strict rejects unknown keys, matching schemas that forbid
// additional properties.
func decodeInput(input map[string]any, out any, strict bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
	})
	if err != nil {
		return fmt.Errorf("build input decoder: %w", err)
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}
