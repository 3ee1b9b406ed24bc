package nodes

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
)

// JSONExtractNode looks up a dot-separated path inside a JSON input.
// String input is parsed first; numeric path segments index into
// arrays. A missing path yields the "default" parameter and
// found=false rather than an error.
type JSONExtractNode struct{}

func (n *JSONExtractNode) Spec() node.Spec {
	return node.Spec{
		Type:        "json_extract",
		DisplayName: "JSON Extract",
		Description: "Extract a value from JSON data by path",
		Category:    "Data Processing",
		Inputs: []node.PortSpec{
			node.Port("json", node.KindJSON, "JSON data or string"),
		},
		Outputs: []node.PortSpec{
			node.Port("value", node.KindAny, "Extracted value"),
			node.Port("found", node.KindAny, "Whether the path resolved"),
		},
		Parameters: []node.ParameterSpec{
			{Name: "path", Kind: "string", Default: "", Description: "Dot-separated path (e.g. 'items.0.name')"},
			{Name: "default", Kind: "string", Default: "", Description: "Value when the path does not resolve"},
		},
		Resources: node.DefaultResources(),
	}
}

func (n *JSONExtractNode) Execute(_ context.Context, run node.Run, data *graph.Node) (map[string]any, error) {
	input := run.InputValue(data.ID, "json")
	if s, ok := input.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			input = parsed
		}
	}

	path := node.ParamString(data.Parameters, "path", "")
	value, found := lookupPath(input, path)
	if !found {
		value = node.ParamString(data.Parameters, "default", "")
	}

	return map[string]any{"value": value, "found": found}, nil
}

func lookupPath(data any, path string) (any, bool) {
	if path == "" {
		return data, data != nil
	}
	current := data
	for _, segment := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
