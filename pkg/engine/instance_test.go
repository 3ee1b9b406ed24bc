package engine_test

import (
	"context"
	"testing"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
	"github.com/latticelabs/lattice/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threadNode mimics a conversational node: it emits a context_key
// output and records whether a previous key was threaded back in.
type threadNode struct{}

func (n *threadNode) Spec() node.Spec {
	return node.Spec{
		Type: "thread",
		Outputs: []node.PortSpec{
			node.Port("response", node.KindText, ""),
			node.Port("context_key", node.KindContext, ""),
		},
	}
}

func (n *threadNode) Execute(_ context.Context, run node.Run, data *graph.Node) (map[string]any, error) {
	prior, _ := run.ExecutionInputs()[engine.ContextKeyInput(data.ID)].(string)
	outputs := map[string]any{
		"response":    "ok",
		"context_key": "key-for-" + data.ID,
	}
	if prior != "" {
		outputs["resumed_from"] = prior
	}
	return outputs, nil
}

func instanceGraph() *graph.Graph {
	g := graph.New("g1", "chat graph")
	g.AddNode(&graph.Node{ID: "bot", Type: "thread"})
	return g
}

func instanceRegistry() *registry.Registry {
	r := registry.New()
	r.Register("thread", func() node.Handler { return &threadNode{} })
	return r
}

func TestExecuteInstance_ThreadsContextKeyAcrossRuns(t *testing.T) {
	g := instanceGraph()
	x := engine.New(instanceRegistry())
	inst := engine.NewInstance("inst-1", g, "")

	assert.Equal(t, "Instance of chat graph", inst.Name)

	run1, err := x.ExecuteInstance(context.Background(), inst, g, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, inst.RunCount)
	assert.NotContains(t, run1.NodeOutputs("bot"), "resumed_from")

	run2, err := x.ExecuteInstance(context.Background(), inst, g, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.RunCount)
	assert.Equal(t, "key-for-bot", run2.NodeOutputs("bot")["resumed_from"])
}

func TestExecuteInstance_ResetClearsThreading(t *testing.T) {
	g := instanceGraph()
	x := engine.New(instanceRegistry())
	inst := engine.NewInstance("inst-1", g, "named")

	_, err := x.ExecuteInstance(context.Background(), inst, g, nil)
	require.NoError(t, err)

	inst.Reset()
	assert.Equal(t, 0, inst.RunCount)

	run, err := x.ExecuteInstance(context.Background(), inst, g, nil)
	require.NoError(t, err)
	assert.NotContains(t, run.NodeOutputs("bot"), "resumed_from")
}

func TestExecuteInstance_FailedRunStillRecorded(t *testing.T) {
	r := instanceRegistry()
	r.Register("boom", func() node.Handler { return &boomNode{} })

	g := graph.New("g1", "failing")
	g.AddNode(&graph.Node{ID: "bad", Type: "boom"})

	x := engine.New(r)
	inst := engine.NewInstance("inst-1", g, "")

	_, err := x.ExecuteInstance(context.Background(), inst, g, nil)
	require.Error(t, err)

	assert.Equal(t, 1, inst.RunCount)
	assert.False(t, inst.LastExecuted.IsZero())
}
