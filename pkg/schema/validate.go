package schema

import (
	"github.com/latticelabs/lattice/pkg/node"
)

// ValidateParameters checks a node's raw parameter map against its
// declared ParameterSpecs. Parameters absent from the map are fine
// (defaults apply at execute time); parameters not declared in the
// spec are fine too (forward compatibility). Only present, declared
// values with a kind mismatch fail.
func ValidateParameters(spec node.Spec, params map[string]any) error {
	var errs []error

	for _, p := range spec.Parameters {
		value, ok := params[p.Name]
		if !ok || value == nil {
			continue
		}

		t := typeFor(p)
		if err := t.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    p.Name,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// typeFor picks the validator for a parameter, honoring an enum
// constraint when one is declared.
func typeFor(p node.ParameterSpec) Type {
	if opts, ok := p.Constraints["enum"]; ok {
		if names := stringSlice(opts); len(names) > 0 {
			return Enum(names...)
		}
	}
	if opts, ok := p.Constraints["options"]; ok {
		if names := stringSlice(opts); len(names) > 0 {
			return Enum(names...)
		}
	}
	return ParseKind(p.Kind)
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
