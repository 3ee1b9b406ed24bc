package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/latticelabs/lattice/pkg/graph"
)

// Instance is a persistent handle over a graph that carries state
// across multiple runs. The engine itself stores nothing; callers
// persist instances through a ports.InstanceStore.
type Instance struct {
	ID           string                    `json:"instance_id"`
	GraphID      string                    `json:"graph_id"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description,omitempty"`
	RunCount     int                       `json:"run_count"`
	State        map[string]any            `json:"state,omitempty"`
	LastOutputs  map[string]map[string]any `json:"last_outputs,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	LastExecuted time.Time                 `json:"last_executed,omitempty"`
}

// NewInstance creates an instance bound to a graph.
func NewInstance(id string, g *graph.Graph, name string) *Instance {
	if name == "" {
		name = fmt.Sprintf("Instance of %s", g.Name)
	}
	return &Instance{
		ID:        id,
		GraphID:   g.ID,
		Name:      name,
		State:     make(map[string]any),
		CreatedAt: time.Now().UTC(),
	}
}

// Reset clears accumulated state so the next run starts fresh.
func (i *Instance) Reset() {
	i.State = make(map[string]any)
	i.RunCount = 0
	i.LastOutputs = nil
}

// ExecuteInstance runs a graph on behalf of an instance. Inputs are
// seeded from the previous run's final outputs: every node that
// produced a context_key output gets it re-injected as the
// "_context_key_<node_id>" execution input, which the chat node reads
// to continue its conversation thread. On return the instance's run
// count and last outputs are updated regardless of success, so a
// failed run's partial outputs are still visible.
func (x *Executor) ExecuteInstance(ctx context.Context, inst *Instance, g *graph.Graph, inputs map[string]any) (*Execution, error) {
	enhanced := make(map[string]any, len(inputs))
	for k, v := range inputs {
		enhanced[k] = v
	}
	if inst.RunCount > 0 {
		for nodeID, outs := range inst.LastOutputs {
			if key, ok := outs["context_key"].(string); ok && key != "" {
				enhanced[ContextKeyInput(nodeID)] = key
			}
		}
	}

	run := NewExecution(g, enhanced)
	err := x.Resume(ctx, run)

	inst.RunCount++
	inst.LastExecuted = time.Now().UTC()
	inst.LastOutputs = run.Outputs()

	return run, err
}

// ContextKeyInput names the per-node execution input that threads a
// conversation context key from one instance run into the next. Node
// implementations read it when no context_key edge is connected.
func ContextKeyInput(nodeID string) string {
	return "_context_key_" + nodeID
}
