package nodes

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
)

// InputNode surfaces caller-supplied execution inputs into the graph.
// The value is resolved in priority order: the node's label, its
// ordinal position among input nodes ("input_1", "input_2", ...), the
// node's own ID, and finally the "value" parameter.
type InputNode struct{}

func (n *InputNode) Spec() node.Spec {
	return node.Spec{
		Type:        "input",
		DisplayName: "Input",
		Description: "Provides input data to the graph",
		Category:    "Input/Output",
		Outputs: []node.PortSpec{
			node.Port("output", node.KindAny, "Input data"),
		},
		Parameters: []node.ParameterSpec{
			{Name: "label", Kind: "string", Default: "", Description: "Friendly name for this input (e.g. 'source_text', 'temperature')"},
			{Name: "value", Kind: "string", Default: "", Description: "Input value"},
			{Name: "data_type", Kind: "string", Default: "text", Description: "Data type (text, json, number)"},
		},
		Resources: node.DefaultResources(),
	}
}

func (n *InputNode) Execute(_ context.Context, run node.Run, data *graph.Node) (map[string]any, error) {
	inputs := run.ExecutionInputs()

	var value any

	if label := strings.TrimSpace(node.ParamString(data.Parameters, "label", "")); label != "" {
		if v, ok := inputs[label]; ok {
			value = v
		}
	}

	if value == nil {
		if ordinal := inputOrdinal(run.Graph(), data.ID); ordinal > 0 {
			if v, ok := inputs["input_"+strconv.Itoa(ordinal)]; ok {
				value = v
			}
		}
	}

	if value == nil {
		if v, ok := inputs[data.ID]; ok {
			value = v
		}
	}

	if value == nil {
		value = node.ParamString(data.Parameters, "value", "")
	}

	value = coerce(value, node.ParamString(data.Parameters, "data_type", "text"))
	return map[string]any{"output": value}, nil
}

// inputOrdinal returns the 1-based position of nodeID among the
// graph's input nodes, sorted by ID, or 0 when not found.
func inputOrdinal(g *graph.Graph, nodeID string) int {
	var ids []string
	for id, n := range g.Nodes {
		if n.Type == "input" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for i, id := range ids {
		if id == nodeID {
			return i + 1
		}
	}
	return 0
}

// coerce converts a string value to the declared data type. Invalid
// JSON stays a string; an unparseable number becomes 0.
func coerce(value any, dataType string) any {
	switch dataType {
	case "json":
		s, ok := value.(string)
		if !ok {
			return value
		}
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return s
		}
		return parsed
	case "number":
		switch v := value.(type) {
		case float64, int:
			return v
		case string:
			if strings.Contains(v, ".") {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					return f
				}
			} else if i, err := strconv.Atoi(v); err == nil {
				return i
			}
			return 0
		default:
			return 0
		}
	default:
		return value
	}
}
