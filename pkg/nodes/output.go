package nodes

import (
	"context"

	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
)

// OutputNode captures a value as a named result of the graph.
type OutputNode struct{}

func (n *OutputNode) Spec() node.Spec {
	return node.Spec{
		Type:        "output",
		DisplayName: "Output",
		Description: "Display output from the graph",
		Category:    "Input/Output",
		Inputs: []node.PortSpec{
			node.Port("input", node.KindAny, "Data to output"),
		},
		Outputs: []node.PortSpec{
			node.Port("result", node.KindAny, "Output result for capture"),
		},
		Parameters: []node.ParameterSpec{
			{Name: "label", Kind: "string", Default: "Output", Description: "Label for the output"},
		},
		Resources: node.DefaultResources(),
	}
}

func (n *OutputNode) Execute(_ context.Context, run node.Run, data *graph.Node) (map[string]any, error) {
	return map[string]any{
		"result": run.InputValue(data.ID, "input"),
		"label":  node.ParamString(data.Parameters, "label", "Output"),
	}, nil
}
