package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
	"github.com/latticelabs/lattice/pkg/ports"
)

// SubgraphRunner executes a graph to completion. Satisfied by
// *engine.Executor, letting subgraphs share the parent's registry.
type SubgraphRunner interface {
	Execute(ctx context.Context, g *graph.Graph, inputs map[string]any) (*engine.Execution, error)
}

// SubgraphNode executes another stored graph as if it were a single
// node. Input and output mappings are JSON parameters; isolation_mode
// controls whether the parent's execution inputs are visible to the
// subgraph. Every misconfiguration is a soft error on execution_info
// so the parent graph still completes.
type SubgraphNode struct {
	Graphs ports.GraphStore
	Runner SubgraphRunner
}

func (n *SubgraphNode) Spec() node.Spec {
	return node.Spec{
		Type:        "subgraph",
		DisplayName: "Subgraph",
		Description: "Execute another graph as a node with exposed inputs/outputs",
		Category:    "Flow Control",
		Inputs: []node.PortSpec{
			node.OptionalPort("trigger", node.KindAny, "Optional trigger input"),
		},
		Outputs: []node.PortSpec{
			node.Port("result", node.KindAny, "Result from subgraph execution"),
			node.Port("execution_info", node.KindText, "Information about subgraph execution"),
		},
		Parameters: []node.ParameterSpec{
			{Name: "graph_id", Kind: "string", Default: "", Description: "ID or name of the graph to execute"},
			{Name: "input_mapping", Kind: "text", Default: "{}", Description: "JSON mapping of node inputs to subgraph inputs"},
			{Name: "output_mapping", Kind: "text", Default: "{}", Description: "JSON mapping of subgraph outputs to node outputs"},
			{
				Name: "isolation_mode", Kind: "select", Default: "isolated",
				Description: "Execution isolation level",
				Constraints: map[string]any{"options": []any{"isolated", "inherit_inputs"}},
			},
		},
		Resources: node.DefaultResources(),
	}
}

func (n *SubgraphNode) Execute(ctx context.Context, run node.Run, data *graph.Node) (map[string]any, error) {
	graphID := node.ParamString(data.Parameters, "graph_id", "")
	if graphID == "" {
		return softSubgraphError("Error: No graph_id specified"), nil
	}
	if n.Graphs == nil || n.Runner == nil {
		return softSubgraphError("Error: subgraph execution is not configured"), nil
	}

	inputMapping, err := parseMapping(data.Parameters, "input_mapping")
	if err != nil {
		return softSubgraphError(fmt.Sprintf("Error executing subgraph: %v", err)), nil
	}
	outputMapping, err := parseMapping(data.Parameters, "output_mapping")
	if err != nil {
		return softSubgraphError(fmt.Sprintf("Error executing subgraph: %v", err)), nil
	}

	sub, err := n.Graphs.Resolve(ctx, graphID)
	if err != nil {
		return softSubgraphError(fmt.Sprintf("Error executing subgraph: %v", err)), nil
	}

	isolation := node.ParamString(data.Parameters, "isolation_mode", "isolated")

	subInputs := make(map[string]any)
	if isolation == "inherit_inputs" {
		for k, v := range run.ExecutionInputs() {
			subInputs[k] = v
		}
	}
	for nodeInput, subInput := range inputMapping {
		if value := run.InputValue(data.ID, nodeInput); value != nil {
			subInputs[subInput] = value
		}
	}
	if trigger := run.InputValue(data.ID, "trigger"); trigger != nil {
		subInputs["_trigger"] = trigger
	}

	subRun, runErr := n.Runner.Execute(ctx, sub, subInputs)
	outputs := subRun.Outputs()

	var result any
	if len(outputMapping) > 0 {
		mapped := make(map[string]any)
		for nodeID, name := range outputMapping {
			if out, ok := outputs[nodeID]; ok {
				mapped[name] = out
			}
		}
		result = mapped
	} else {
		result = outputs
	}

	info := map[string]any{
		"subgraph_id":    sub.ID,
		"subgraph_name":  sub.Name,
		"status":         "completed",
		"node_count":     len(sub.Nodes),
		"isolation_mode": isolation,
		"output_nodes":   sortedKeys(outputs),
	}
	if runErr != nil {
		info["status"] = "failed"
		info["errors"] = subRun.Errors()
	}

	infoJSON, _ := json.MarshalIndent(info, "", "  ")
	return map[string]any{
		"result":         result,
		"execution_info": string(infoJSON),
	}, nil
}

func parseMapping(params map[string]any, name string) (map[string]string, error) {
	raw := node.ParamString(params, name, "{}")
	mapping := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return mapping, nil
}

func softSubgraphError(info string) map[string]any {
	return map[string]any{"result": nil, "execution_info": info}
}

func sortedKeys(m map[string]map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
