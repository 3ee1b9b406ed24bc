package node

import (
	"context"

	"github.com/latticelabs/lattice/pkg/graph"
)

// Run is the node's view of one graph execution. It resolves input
// values through the graph's edges and records outputs and statuses.
// Implementations must be safe for concurrent use within a parallel
// batch.
type Run interface {
	// ExecutionID identifies the run.
	ExecutionID() string

	// Graph returns the graph being executed. Read-only by contract.
	Graph() *graph.Graph

	// ExecutionInputs returns the caller-supplied initial inputs.
	ExecutionInputs() map[string]any

	// InputValue resolves the value feeding (nodeID, port) through the
	// connected edge, or nil when nothing is connected or the source
	// has not produced output yet.
	InputValue(nodeID, port string) any

	// SetOutput merges a value into the node's output mapping.
	SetOutput(nodeID, port string, value any)
}

// Handler runs one node's logic. A fresh handler is constructed for
// every node invocation; persistent state belongs in the Run or in
// external stores, never on the handler.
//
// Execute returns a mapping of output port names to values. Expected
// "no value" conditions must not return an error; by convention they
// are encoded into the outputs (default values, "Error: ..." strings)
// so downstream nodes still complete. An error return is reserved for
// truly exceptional conditions and fails the node.
type Handler interface {
	Spec() Spec
	Execute(ctx context.Context, run Run, data *graph.Node) (map[string]any, error)
}

// Streamer is optionally implemented by handlers that can produce
// their primary output incrementally. The chunk channel is finite,
// single-pass and not restartable; the engine drains it and then calls
// Execute to materialize the full output mapping, so implementations
// must tolerate the follow-up call without doubling side effects.
type Streamer interface {
	ExecuteStreaming(ctx context.Context, run Run, data *graph.Node) (<-chan string, error)
}

// InputValidator lets a handler replace the default required-port
// check performed via Spec.ValidateInputs.
type InputValidator interface {
	ValidateInputs(inputs map[string]any) bool
}

// Factory constructs a fresh handler for a single invocation.
type Factory func() Handler
