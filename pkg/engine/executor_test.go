package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
	"github.com/latticelabs/lattice/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emitNode produces a fixed value on its "output" port.
type emitNode struct{ value string }

func (n *emitNode) Spec() node.Spec {
	return node.Spec{
		Type:    "emit",
		Outputs: []node.PortSpec{node.Port("output", node.KindText, "emitted value")},
	}
}

func (n *emitNode) Execute(_ context.Context, _ node.Run, data *graph.Node) (map[string]any, error) {
	value := node.ParamString(data.Parameters, "value", n.value)
	return map[string]any{"output": value}, nil
}

// upperNode uppercases its "text" input.
type upperNode struct{}

func (n *upperNode) Spec() node.Spec {
	return node.Spec{
		Type:    "upper",
		Inputs:  []node.PortSpec{node.Port("text", node.KindText, "input text")},
		Outputs: []node.PortSpec{node.Port("output", node.KindText, "uppercased")},
	}
}

func (n *upperNode) Execute(_ context.Context, run node.Run, data *graph.Node) (map[string]any, error) {
	text, _ := run.InputValue(data.ID, "text").(string)
	return map[string]any{"output": strings.ToUpper(text)}, nil
}

// boomNode always fails.
type boomNode struct{}

func (n *boomNode) Spec() node.Spec { return node.Spec{Type: "boom"} }

func (n *boomNode) Execute(context.Context, node.Run, *graph.Node) (map[string]any, error) {
	return nil, errors.New("kaboom")
}

func testRegistry() *registry.Registry {
	r := registry.New()
	r.Register("emit", func() node.Handler { return &emitNode{value: "hello"} })
	r.Register("upper", func() node.Handler { return &upperNode{} })
	r.Register("boom", func() node.Handler { return &boomNode{} })
	return r
}

func twoNodeGraph() *graph.Graph {
	g := graph.New("g1", "roundtrip")
	g.AddNode(&graph.Node{ID: "source", Type: "emit", Parameters: map[string]any{"value": "hello"}})
	g.AddNode(&graph.Node{ID: "transform", Type: "upper"})
	g.AddEdge(graph.Edge{SourceNode: "source", SourcePort: "output", TargetNode: "transform", TargetPort: "text"})
	return g
}

func TestExecute_RoundTrip(t *testing.T) {
	x := engine.New(testRegistry())

	run, err := x.Execute(context.Background(), twoNodeGraph(), nil)
	require.NoError(t, err)

	assert.Equal(t, "HELLO", run.NodeOutputs("transform")["output"])
	assert.Equal(t, graph.StatusCompleted, run.Status("source"))
	assert.Equal(t, graph.StatusCompleted, run.Status("transform"))
	assert.False(t, run.CompletedAt().IsZero())
}

func TestExecute_InvalidGraphNeverStarts(t *testing.T) {
	g := graph.New("g1", "cycle")
	g.AddNode(&graph.Node{ID: "a", Type: "emit"})
	g.AddNode(&graph.Node{ID: "b", Type: "emit"})
	g.AddEdge(graph.Edge{SourceNode: "a", SourcePort: "output", TargetNode: "b", TargetPort: "text"})
	g.AddEdge(graph.Edge{SourceNode: "b", SourcePort: "output", TargetNode: "a", TargetPort: "text"})

	x := engine.New(testRegistry())
	run, err := x.Execute(context.Background(), g, nil)

	var verr *graph.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, graph.StatusPending, run.Status("a"))
	assert.Equal(t, graph.StatusPending, run.Status("b"))
}

func TestExecute_UnknownNodeType(t *testing.T) {
	g := graph.New("g1", "unknown")
	g.AddNode(&graph.Node{ID: "mystery", Type: "does_not_exist"})

	x := engine.New(testRegistry())
	run, err := x.Execute(context.Background(), g, nil)

	var xerr *engine.ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "mystery", xerr.NodeID)
	assert.Contains(t, err.Error(), "unknown node type")
	assert.Equal(t, graph.StatusFailed, run.Status("mystery"))
}

func TestExecute_NodeFailureAbortsRun(t *testing.T) {
	g := graph.New("g1", "failing")
	g.AddNode(&graph.Node{ID: "first", Type: "boom"})
	g.AddNode(&graph.Node{ID: "second", Type: "emit"})
	g.AddEdge(graph.Edge{SourceNode: "first", SourcePort: "output", TargetNode: "second", TargetPort: "text"})

	x := engine.New(testRegistry())
	run, err := x.Execute(context.Background(), g, nil)

	var xerr *engine.ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "first", xerr.NodeID)

	assert.Equal(t, graph.StatusFailed, run.Status("first"))
	msg, ok := run.NodeError("first")
	require.True(t, ok)
	assert.Equal(t, "kaboom", msg)

	// Downstream nodes never leave pending.
	assert.Equal(t, graph.StatusPending, run.Status("second"))
}

func TestExecute_MissingRequiredInput(t *testing.T) {
	g := graph.New("g1", "lonely")
	// No edge feeds transform's required "text" port.
	g.AddNode(&graph.Node{ID: "transform", Type: "upper"})

	x := engine.New(testRegistry())
	run, err := x.Execute(context.Background(), g, nil)

	var xerr *engine.ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.Contains(t, err.Error(), "text")
	assert.Equal(t, graph.StatusFailed, run.Status("transform"))
}

// trimNode declares a typed parameter so mismatches surface before
// the handler runs.
type trimNode struct{}

func (n *trimNode) Spec() node.Spec {
	return node.Spec{
		Type:    "trim",
		Outputs: []node.PortSpec{node.Port("output", node.KindText, "")},
		Parameters: []node.ParameterSpec{
			{Name: "max_length", Kind: "int", Default: 80, Description: "Truncation length"},
		},
	}
}

func (n *trimNode) Execute(_ context.Context, _ node.Run, _ *graph.Node) (map[string]any, error) {
	return map[string]any{"output": "ran"}, nil
}

func TestExecute_DeclaredParameterMismatchFailsNode(t *testing.T) {
	r := testRegistry()
	r.Register("trim", func() node.Handler { return &trimNode{} })

	g := graph.New("g1", "badparam")
	g.AddNode(&graph.Node{ID: "t", Type: "trim", Parameters: map[string]any{"max_length": "eighty"}})

	x := engine.New(r)
	run, err := x.Execute(context.Background(), g, nil)

	var xerr *engine.ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "t", xerr.NodeID)
	assert.Contains(t, err.Error(), "max_length")
	assert.Equal(t, graph.StatusFailed, run.Status("t"))
}

func TestExecute_UndeclaredParameterIgnored(t *testing.T) {
	g := graph.New("g1", "extraparam")
	// emit declares no parameters; unknown keys pass through untouched.
	g.AddNode(&graph.Node{ID: "source", Type: "emit", Parameters: map[string]any{
		"value": "hello", "retries": 3,
	}})

	x := engine.New(testRegistry())
	run, err := x.Execute(context.Background(), g, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", run.NodeOutputs("source")["output"])
}

// defaultNode declares a required port with a default.
type defaultNode struct{}

func (n *defaultNode) Spec() node.Spec {
	return node.Spec{
		Type: "defaulted",
		Inputs: []node.PortSpec{{
			Name: "text", Kind: node.KindText, Required: true, Default: "fallback",
		}},
		Outputs: []node.PortSpec{node.Port("output", node.KindText, "")},
	}
}

func (n *defaultNode) Execute(_ context.Context, _ node.Run, _ *graph.Node) (map[string]any, error) {
	return map[string]any{"output": "ran"}, nil
}

func TestExecute_RequiredPortDefaultSubstituted(t *testing.T) {
	r := testRegistry()
	r.Register("defaulted", func() node.Handler { return &defaultNode{} })

	g := graph.New("g1", "defaulted")
	g.AddNode(&graph.Node{ID: "d", Type: "defaulted"})

	x := engine.New(r)
	run, err := x.Execute(context.Background(), g, nil)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusCompleted, run.Status("d"))
}

// echoNode reports its own node ID so ordering tests can tell runs apart.
type echoNode struct{}

func (n *echoNode) Spec() node.Spec {
	return node.Spec{Type: "echo", Outputs: []node.PortSpec{node.Port("output", node.KindText, "")}}
}

func (n *echoNode) Execute(_ context.Context, _ node.Run, data *graph.Node) (map[string]any, error) {
	return map[string]any{"output": data.ID}, nil
}

func TestExecuteBatches_Diamond(t *testing.T) {
	r := testRegistry()
	r.Register("echo", func() node.Handler { return &echoNode{} })

	g := graph.New("g1", "diamond")
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(&graph.Node{ID: id, Type: "echo"})
	}
	g.AddEdge(graph.Edge{SourceNode: "a", SourcePort: "output", TargetNode: "b", TargetPort: "in"})
	g.AddEdge(graph.Edge{SourceNode: "a", SourcePort: "output", TargetNode: "c", TargetPort: "in"})
	g.AddEdge(graph.Edge{SourceNode: "b", SourcePort: "output", TargetNode: "d", TargetPort: "x"})
	g.AddEdge(graph.Edge{SourceNode: "c", SourcePort: "output", TargetNode: "d", TargetPort: "y"})

	x := engine.New(r)
	run, err := x.ExecuteBatches(context.Background(), g, nil)
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, graph.StatusCompleted, run.Status(id))
		assert.Equal(t, id, run.NodeOutputs(id)["output"])
	}
}

func TestExecuteBatches_FailureAwaitsWholeBatch(t *testing.T) {
	g := graph.New("g1", "batchfail")
	g.AddNode(&graph.Node{ID: "bad", Type: "boom"})
	g.AddNode(&graph.Node{ID: "good", Type: "emit"})
	g.AddNode(&graph.Node{ID: "after", Type: "emit"})
	g.AddEdge(graph.Edge{SourceNode: "bad", SourcePort: "output", TargetNode: "after", TargetPort: "in"})

	x := engine.New(testRegistry())
	run, err := x.ExecuteBatches(context.Background(), g, nil)

	var xerr *engine.ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "bad", xerr.NodeID)

	// Peers in the failing batch are awaited, not abandoned.
	assert.Equal(t, graph.StatusCompleted, run.Status("good"))
	// The next batch never starts.
	assert.Equal(t, graph.StatusPending, run.Status("after"))
}

func TestExecute_HooksFire(t *testing.T) {
	var mu sync.Mutex
	finished := map[string]graph.NodeStatus{}

	x := engine.New(testRegistry(), engine.WithHooks(engine.Hooks{
		OnNodeFinish: func(nodeID, nodeType string, status graph.NodeStatus, _ time.Duration) {
			mu.Lock()
			finished[nodeID] = status
			mu.Unlock()
		},
	}))

	_, err := x.Execute(context.Background(), twoNodeGraph(), nil)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusCompleted, finished["source"])
	assert.Equal(t, graph.StatusCompleted, finished["transform"])
}

func TestExecute_FreshHandlerPerInvocation(t *testing.T) {
	calls := 0
	r := registry.New()
	r.Register("counting", func() node.Handler {
		calls++
		return &emitNode{value: fmt.Sprintf("call-%d", calls)}
	})

	g := graph.New("g1", "twice")
	g.AddNode(&graph.Node{ID: "one", Type: "counting"})
	g.AddNode(&graph.Node{ID: "two", Type: "counting"})

	x := engine.New(r)
	_, err := x.Execute(context.Background(), g, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "each node invocation constructs a fresh handler")
}
