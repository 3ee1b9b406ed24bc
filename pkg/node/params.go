package node

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeParams decodes a node's raw parameter map into a typed struct
// using mapstructure tags. Decoding is weakly typed so values arriving
// through JSON (float64 numbers, "true" strings) land in the fields
// handlers declare.
func DecodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build parameter decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	return nil
}

// ParamString reads a string parameter with a fallback default.
func ParamString(params map[string]any, name, fallback string) string {
	if v, ok := params[name].(string); ok && v != "" {
		return v
	}
	return fallback
}

// ParamBool reads a boolean parameter with a fallback default.
func ParamBool(params map[string]any, name string, fallback bool) bool {
	if v, ok := params[name].(bool); ok {
		return v
	}
	return fallback
}
