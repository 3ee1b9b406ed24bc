package nodes_test

import (
	"context"
	"testing"

	"github.com/latticelabs/lattice/internal/adapters/memory"
	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/nodes"
	"github.com/latticelabs/lattice/pkg/ports"
	"github.com/latticelabs/lattice/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatGraph() *graph.Graph {
	g := graph.New("g1", "chat")
	g.AddNode(&graph.Node{ID: "msg", Type: "input", Parameters: map[string]any{"label": "message"}})
	g.AddNode(&graph.Node{ID: "bot", Type: "chat"})
	g.AddEdge(graph.Edge{SourceNode: "msg", SourcePort: "output", TargetNode: "bot", TargetPort: "message"})
	return g
}

func chatExecutor(contexts ports.ContextStore) *engine.Executor {
	reg := registry.New()
	nodes.RegisterBuiltins(reg, nodes.Config{Contexts: contexts})
	return engine.New(reg)
}

func TestChatNode_RespondsAndEmitsContextKey(t *testing.T) {
	contexts := memory.NewContextStore()
	x := chatExecutor(contexts)

	run, err := x.Execute(context.Background(), chatGraph(), map[string]any{"message": "hello"})
	require.NoError(t, err)

	out := run.NodeOutputs("bot")
	assert.Equal(t, "You said: hello", out["response"])
	assert.Equal(t, "3", out["message_count"], "system + user + assistant")

	key, _ := out["context_key"].(string)
	require.Len(t, key, 16)

	stored, err := contexts.Load(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "system", stored[0].Role)
	assert.Equal(t, "hello", stored[1].Content)
	assert.Equal(t, "You said: hello", stored[2].Content)
}

func TestChatNode_ContinuesFromContextKey(t *testing.T) {
	contexts := memory.NewContextStore()
	x := chatExecutor(contexts)

	first, err := x.Execute(context.Background(), chatGraph(), map[string]any{"message": "turn one"})
	require.NoError(t, err)
	key, _ := first.NodeOutputs("bot")["context_key"].(string)

	// The seeded per-node key threads the conversation without a
	// connected context_key edge.
	second, err := x.Execute(context.Background(), chatGraph(), map[string]any{
		"message":                     "turn two",
		engine.ContextKeyInput("bot"): key,
	})
	require.NoError(t, err)

	out := second.NodeOutputs("bot")
	assert.Equal(t, "5", out["message_count"])
	assert.NotEqual(t, key, out["context_key"])
}

func TestChatNode_MissingMessageIsSoftError(t *testing.T) {
	x := chatExecutor(memory.NewContextStore())

	g := graph.New("g1", "chat")
	g.AddNode(&graph.Node{ID: "msg", Type: "input"})
	g.AddNode(&graph.Node{ID: "bot", Type: "chat"})
	g.AddEdge(graph.Edge{SourceNode: "msg", SourcePort: "output", TargetNode: "bot", TargetPort: "message"})

	run, err := x.Execute(context.Background(), g, nil)
	require.NoError(t, err, "a missing message must not fail the graph")

	out := run.NodeOutputs("bot")
	assert.Equal(t, "Error: No message provided", out["response"])
	assert.Equal(t, "empty", out["context_key"])
	assert.Equal(t, graph.StatusCompleted, run.Status("bot"))
}

func TestChatNode_StreamsThroughEngine(t *testing.T) {
	x := chatExecutor(memory.NewContextStore())

	var chunks, completes int
	var streamed string
	for ev := range x.ExecuteStreaming(context.Background(), chatGraph(), map[string]any{"message": "stream me"}) {
		switch ev.Type {
		case engine.EventNodeChunk:
			chunks++
			streamed += ev.Chunk
		case engine.EventNodeComplete:
			if ev.NodeID == "bot" {
				completes++
				assert.Equal(t, "You said: stream me", ev.Outputs["response"])
			}
		}
	}

	assert.Greater(t, chunks, 1, "mock provider streams word by word")
	assert.Equal(t, "You said: stream me", streamed)
	assert.Equal(t, 1, completes)
}

// recordingProvider captures the request it was asked to fulfil.
type recordingProvider struct {
	nodes.MockProvider
	last nodes.ChatRequest
}

func (p *recordingProvider) Generate(ctx context.Context, req nodes.ChatRequest) (string, error) {
	p.last = req
	return p.MockProvider.Generate(ctx, req)
}

func TestChatNode_ParametersShapeTheRequest(t *testing.T) {
	provider := &recordingProvider{}
	reg := registry.New()
	nodes.RegisterBuiltins(reg, nodes.Config{Chat: provider, Contexts: memory.NewContextStore()})
	x := engine.New(reg)

	g := chatGraph()
	g.Nodes["bot"].Parameters = map[string]any{
		"model":         "gpt-test",
		"system_prompt": "Answer tersely.",
		"temperature":   0.2,
	}

	_, err := x.Execute(context.Background(), g, map[string]any{"message": "hi"})
	require.NoError(t, err)

	assert.Equal(t, "gpt-test", provider.last.Model)
	assert.Equal(t, 0.2, provider.last.Temperature)
	require.NotEmpty(t, provider.last.Messages)
	assert.Equal(t, "system", provider.last.Messages[0].Role)
	assert.Equal(t, "Answer tersely.", provider.last.Messages[0].Content)
}

func TestChatNode_DefaultsWhenUnconfigured(t *testing.T) {
	provider := &recordingProvider{}
	reg := registry.New()
	nodes.RegisterBuiltins(reg, nodes.Config{Chat: provider, Contexts: memory.NewContextStore()})
	x := engine.New(reg)

	_, err := x.Execute(context.Background(), chatGraph(), map[string]any{"message": "hi"})
	require.NoError(t, err)

	assert.Equal(t, "mock", provider.last.Model)
	assert.Equal(t, 0.7, provider.last.Temperature)
}

func TestMockProvider_StreamMatchesGenerate(t *testing.T) {
	p := &nodes.MockProvider{}
	req := nodes.ChatRequest{Messages: []ports.Message{{Role: "user", Content: "ping"}}}

	full, err := p.Generate(context.Background(), req)
	require.NoError(t, err)

	chunks, err := p.GenerateStreaming(context.Background(), req)
	require.NoError(t, err)
	var joined string
	for chunk := range chunks {
		joined += chunk
	}
	assert.Equal(t, full, joined)
}
