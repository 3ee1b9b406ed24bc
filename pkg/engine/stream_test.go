package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
	"github.com/latticelabs/lattice/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkNode streams a fixed message word by word.
type chunkNode struct{ message string }

func (n *chunkNode) Spec() node.Spec {
	return node.Spec{
		Type:    "chunky",
		Outputs: []node.PortSpec{node.Port("response", node.KindText, "")},
	}
}

func (n *chunkNode) Execute(context.Context, node.Run, *graph.Node) (map[string]any, error) {
	return map[string]any{"response": n.message}, nil
}

func (n *chunkNode) ExecuteStreaming(_ context.Context, _ node.Run, _ *graph.Node) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(out)
		for _, word := range strings.Fields(n.message) {
			out <- word + " "
		}
	}()
	return out, nil
}

func collect(events <-chan engine.Event) []engine.Event {
	var all []engine.Event
	for ev := range events {
		all = append(all, ev)
	}
	return all
}

func TestExecuteStreaming_EventSequence(t *testing.T) {
	r := registry.New()
	r.Register("chunky", func() node.Handler { return &chunkNode{message: "hello streaming world"} })

	g := graph.New("g1", "stream")
	g.AddNode(&graph.Node{ID: "talker", Type: "chunky", Parameters: map[string]any{"streaming": true}})

	x := engine.New(r)
	events := collect(x.ExecuteStreaming(context.Background(), g, nil))
	require.Len(t, events, 5)

	var chunks []string
	for _, ev := range events[:3] {
		assert.Equal(t, engine.EventNodeChunk, ev.Type)
		assert.Equal(t, "talker", ev.NodeID)
		assert.False(t, ev.Timestamp.IsZero())
		chunks = append(chunks, ev.Chunk)
	}
	assert.Equal(t, "hello streaming world", strings.TrimSpace(strings.Join(chunks, "")))

	done := events[3]
	assert.Equal(t, engine.EventNodeComplete, done.Type)
	assert.Equal(t, "talker", done.NodeID)
	assert.Equal(t, string(graph.StatusCompleted), done.Status)
	assert.Equal(t, "hello streaming world", done.Outputs["response"])

	final := events[4]
	assert.Equal(t, engine.EventExecutionComplete, final.Type)
	assert.Contains(t, final.Outputs, "talker")
}

func TestExecuteStreaming_NonStreamingNodeEmitsResponseAsOneChunk(t *testing.T) {
	r := registry.New()
	// Registered under "chat" so the default streaming-type set applies
	// even though the handler has no ExecuteStreaming method.
	r.Register("chat", func() node.Handler { return &emitResponseNode{} })

	g := graph.New("g1", "fallback")
	g.AddNode(&graph.Node{ID: "bot", Type: "chat"})

	x := engine.New(r)
	events := collect(x.ExecuteStreaming(context.Background(), g, nil))
	require.Len(t, events, 3)

	assert.Equal(t, engine.EventNodeChunk, events[0].Type)
	assert.Equal(t, "full response", events[0].Chunk)
	assert.Equal(t, engine.EventNodeComplete, events[1].Type)
	assert.Equal(t, engine.EventExecutionComplete, events[2].Type)
}

type emitResponseNode struct{}

func (n *emitResponseNode) Spec() node.Spec {
	return node.Spec{
		Type:    "chat",
		Outputs: []node.PortSpec{node.Port("response", node.KindText, "")},
	}
}

func (n *emitResponseNode) Execute(context.Context, node.Run, *graph.Node) (map[string]any, error) {
	return map[string]any{"response": "full response"}, nil
}

func TestExecuteStreaming_FailureEndsWithErrorEvent(t *testing.T) {
	r := registry.New()
	r.Register("boom", func() node.Handler { return &boomNode{} })
	r.Register("emit", func() node.Handler { return &emitNode{value: "x"} })

	g := graph.New("g1", "streamfail")
	g.AddNode(&graph.Node{ID: "bad", Type: "boom"})
	g.AddNode(&graph.Node{ID: "never", Type: "emit"})
	g.AddEdge(graph.Edge{SourceNode: "bad", SourcePort: "output", TargetNode: "never", TargetPort: "text"})

	x := engine.New(r)
	events := collect(x.ExecuteStreaming(context.Background(), g, nil))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, engine.EventExecutionError, last.Type)
	assert.Contains(t, last.Error, "kaboom")

	// No node_complete for the failed node and nothing after the error.
	for _, ev := range events {
		assert.NotEqual(t, engine.EventNodeComplete, ev.Type)
	}
}

func TestExecuteStreaming_InvalidGraph(t *testing.T) {
	g := graph.New("g1", "cycle")
	g.AddNode(&graph.Node{ID: "a", Type: "emit"})
	g.AddNode(&graph.Node{ID: "b", Type: "emit"})
	g.AddEdge(graph.Edge{SourceNode: "a", SourcePort: "output", TargetNode: "b", TargetPort: "in"})
	g.AddEdge(graph.Edge{SourceNode: "b", SourcePort: "output", TargetNode: "a", TargetPort: "in"})

	x := engine.New(registry.New())
	events := collect(x.ExecuteStreaming(context.Background(), g, nil))
	require.Len(t, events, 1)
	assert.Equal(t, engine.EventExecutionError, events[0].Type)
	assert.Contains(t, events[0].Error, "cycle")
}

// slowStreamNode streams chunks on an unbuffered channel until its
// producer goroutine has sent them all, then closes finished.
type slowStreamNode struct {
	chunks   int
	finished chan struct{}
}

func (n *slowStreamNode) Spec() node.Spec {
	return node.Spec{
		Type:    "slow",
		Outputs: []node.PortSpec{node.Port("response", node.KindText, "")},
	}
}

func (n *slowStreamNode) Execute(context.Context, node.Run, *graph.Node) (map[string]any, error) {
	return map[string]any{"response": "done"}, nil
}

func (n *slowStreamNode) ExecuteStreaming(_ context.Context, _ node.Run, _ *graph.Node) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(n.finished)
		defer close(out)
		for i := 0; i < n.chunks; i++ {
			out <- "chunk "
		}
	}()
	return out, nil
}

func TestExecuteStreaming_AbortedStreamUnblocksProducer(t *testing.T) {
	handler := &slowStreamNode{chunks: 100, finished: make(chan struct{})}

	r := registry.New()
	r.Register("slow", func() node.Handler { return handler })

	g := graph.New("g1", "abort")
	g.AddNode(&graph.Node{ID: "talker", Type: "slow", Parameters: map[string]any{"streaming": true}})

	ctx, cancel := context.WithCancel(context.Background())
	x := engine.New(r)
	events := x.ExecuteStreaming(ctx, g, nil)

	// Take one chunk, then abandon the run mid-stream.
	ev, ok := <-events
	require.True(t, ok)
	require.Equal(t, engine.EventNodeChunk, ev.Type)
	cancel()
	for range events {
	}

	// The provider goroutine must still run to completion instead of
	// blocking forever on its next send.
	select {
	case <-handler.finished:
	case <-time.After(5 * time.Second):
		t.Fatal("stream producer still blocked after the run was abandoned")
	}
}

func TestExecuteStreaming_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := registry.New()
	r.Register("emit", func() node.Handler { return &emitNode{value: "x"} })

	g := graph.New("g1", "cancelled")
	g.AddNode(&graph.Node{ID: "only", Type: "emit"})

	x := engine.New(r)
	events := x.ExecuteStreaming(ctx, g, nil)

	// The channel must close even with no consumer reads.
	for range events {
	}
}
