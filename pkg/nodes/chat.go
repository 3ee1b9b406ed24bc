package nodes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
	"github.com/latticelabs/lattice/pkg/ports"
)

const defaultSystemPrompt = "You are a helpful AI assistant."

// chatParams is the typed view of the node's configuration.
type chatParams struct {
	Model        string  `mapstructure:"model"`
	SystemPrompt string  `mapstructure:"system_prompt"`
	Temperature  float64 `mapstructure:"temperature"`
	Streaming    bool    `mapstructure:"streaming"`
}

func chatDefaults() chatParams {
	return chatParams{
		Model:        "mock",
		SystemPrompt: defaultSystemPrompt,
		Temperature:  0.7,
	}
}

// ChatRequest is one completion request against a provider.
type ChatRequest struct {
	Model       string
	Temperature float64
	Messages    []ports.Message
}

// ChatProvider generates chat completions. Implementations wrap a
// concrete LLM backend; MockProvider serves tests and offline use.
type ChatProvider interface {
	// Generate returns the full assistant response.
	Generate(ctx context.Context, req ChatRequest) (string, error)

	// GenerateStreaming returns a finite channel of response chunks.
	// The concatenated chunks equal the Generate response for the same
	// request.
	GenerateStreaming(ctx context.Context, req ChatRequest) (<-chan string, error)
}

// MockProvider is a deterministic provider for tests and demos. It
// echoes the last user message.
type MockProvider struct{}

func (p *MockProvider) Generate(_ context.Context, req ChatRequest) (string, error) {
	return p.respond(req), nil
}

func (p *MockProvider) GenerateStreaming(_ context.Context, req ChatRequest) (<-chan string, error) {
	response := p.respond(req)
	out := make(chan string)
	go func() {
		defer close(out)
		for _, word := range strings.SplitAfter(response, " ") {
			out <- word
		}
	}()
	return out, nil
}

func (p *MockProvider) respond(req ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return fmt.Sprintf("You said: %s", req.Messages[i].Content)
		}
	}
	return "Hello! How can I help?"
}

// ChatNode is a conversational node backed by a ChatProvider, with
// immutable content-addressable context threading. Each turn loads the
// previous history by key, appends the user message and the response,
// and stores the result under a new key emitted on the context_key
// port. Provider and store failures become "Error: ..." responses so
// the graph still completes.
type ChatNode struct {
	Provider ChatProvider
	Contexts ports.ContextStore
}

func (n *ChatNode) Spec() node.Spec {
	return node.Spec{
		Type:        "chat",
		DisplayName: "Chat",
		Description: "Chat with immutable, content-addressable context management",
		Category:    "AI/Chat",
		Inputs: []node.PortSpec{
			node.Port("message", node.KindText, "User message"),
			node.OptionalPort("context_key", node.KindContext, "Previous context key"),
			node.OptionalPort("model", node.KindText, "Model name override"),
			node.OptionalPort("system_prompt", node.KindText, "System prompt override"),
			node.OptionalPort("temperature", node.KindText, "Temperature override"),
		},
		Outputs: []node.PortSpec{
			node.Port("response", node.KindText, "AI response"),
			node.Port("context_key", node.KindContext, "New context key for the next turn"),
			node.Port("message_count", node.KindText, "Total messages in context"),
		},
		Parameters: []node.ParameterSpec{
			{Name: "model", Kind: "string", Default: "mock", Description: "Model name"},
			{Name: "system_prompt", Kind: "text", Default: defaultSystemPrompt, Description: "System prompt"},
			{Name: "temperature", Kind: "number", Default: 0.7, Description: "Response temperature", Constraints: map[string]any{"min": 0.0, "max": 2.0}},
			{Name: "streaming", Kind: "boolean", Default: false, Description: "Enable streaming response"},
		},
		Resources: node.DefaultResources(),
	}
}

func (n *ChatNode) Execute(ctx context.Context, run node.Run, data *graph.Node) (map[string]any, error) {
	message, _ := run.InputValue(data.ID, "message").(string)
	prevKey := n.previousContextKey(run, data)

	if message == "" {
		return map[string]any{
			"response":      "Error: No message provided",
			"context_key":   orDefault(prevKey, "empty"),
			"message_count": "0",
		}, nil
	}

	history := n.loadHistory(ctx, prevKey, n.systemPrompt(run, data))
	req := n.request(run, data, append(history, ports.Message{Role: "user", Content: message}))
	response, err := n.Provider.Generate(ctx, req)
	if err != nil {
		return n.softError(err, prevKey), nil
	}

	updated := append(req.Messages, ports.Message{Role: "assistant", Content: response})
	newKey, err := n.Contexts.Store(ctx, updated)
	if err != nil {
		return n.softError(err, prevKey), nil
	}

	return map[string]any{
		"response":      response,
		"context_key":   newKey,
		"message_count": strconv.Itoa(len(updated)),
	}, nil
}

// ExecuteStreaming streams response chunks. The executor's follow-up
// Execute call regenerates and stores the full turn; the provider
// contract makes both calls produce the same response.
func (n *ChatNode) ExecuteStreaming(ctx context.Context, run node.Run, data *graph.Node) (<-chan string, error) {
	message, _ := run.InputValue(data.ID, "message").(string)
	if message == "" {
		return oneChunk("Error: No message provided"), nil
	}

	history := n.loadHistory(ctx, n.previousContextKey(run, data), n.systemPrompt(run, data))
	req := n.request(run, data, append(history, ports.Message{Role: "user", Content: message}))
	chunks, err := n.Provider.GenerateStreaming(ctx, req)
	if err != nil {
		return oneChunk("Error: " + err.Error()), nil
	}
	return chunks, nil
}

// previousContextKey resolves the context key feeding this turn: the
// connected context_key edge first, then the per-node key an instance
// run seeds, then the global fallback input.
func (n *ChatNode) previousContextKey(run node.Run, data *graph.Node) string {
	if key, _ := run.InputValue(data.ID, "context_key").(string); key != "" {
		return key
	}
	if key, _ := run.ExecutionInputs()[engine.ContextKeyInput(data.ID)].(string); key != "" {
		return key
	}
	key, _ := run.ExecutionInputs()["_context_key"].(string)
	return key
}

// params decodes the raw parameter map into typed configuration,
// keeping the defaults for absent or undecodable values.
func (n *ChatNode) params(data *graph.Node) chatParams {
	p := chatDefaults()
	if err := node.DecodeParams(data.Parameters, &p); err != nil {
		return chatDefaults()
	}
	if p.Model == "" {
		p.Model = "mock"
	}
	if p.SystemPrompt == "" {
		p.SystemPrompt = defaultSystemPrompt
	}
	return p
}

func (n *ChatNode) systemPrompt(run node.Run, data *graph.Node) string {
	if prompt, _ := run.InputValue(data.ID, "system_prompt").(string); prompt != "" {
		return prompt
	}
	return n.params(data).SystemPrompt
}

// loadHistory fetches the stored history behind key, starting a fresh
// conversation with the system prompt when there is none. An unknown
// or expired key also starts fresh.
func (n *ChatNode) loadHistory(ctx context.Context, key, systemPrompt string) []ports.Message {
	if key != "" && key != "empty" && key != "error" {
		if messages, err := n.Contexts.Load(ctx, key); err == nil && len(messages) > 0 {
			return messages
		}
	}
	return []ports.Message{{Role: "system", Content: systemPrompt}}
}

// request builds the provider request from decoded parameters, with
// connected ports overriding them per turn.
func (n *ChatNode) request(run node.Run, data *graph.Node, messages []ports.Message) ChatRequest {
	p := n.params(data)

	if model, _ := run.InputValue(data.ID, "model").(string); model != "" {
		p.Model = model
	}
	if raw, _ := run.InputValue(data.ID, "temperature").(string); raw != "" {
		if t, err := strconv.ParseFloat(raw, 64); err == nil {
			p.Temperature = t
		}
	}

	return ChatRequest{Model: p.Model, Temperature: p.Temperature, Messages: messages}
}

func (n *ChatNode) softError(err error, prevKey string) map[string]any {
	return map[string]any{
		"response":      "Error: " + err.Error(),
		"context_key":   orDefault(prevKey, "error"),
		"message_count": "0",
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func oneChunk(chunk string) <-chan string {
	out := make(chan string, 1)
	out <- chunk
	close(out)
	return out
}
