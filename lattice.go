package lattice

import (
	"context"
	_ "embed"
	"log/slog"

	"github.com/latticelabs/lattice/internal/logging"
	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/nodes"
	"github.com/latticelabs/lattice/pkg/ports"
	"github.com/latticelabs/lattice/pkg/registry"
)

// Version is the library version, set from the VERSION file at build time.
//
//go:embed VERSION
var Version string

// Engine is the high-level entry point for the Lattice library. It
// bundles a node registry with the built-in node types and an executor,
// and provides a simplified API for consumers. Adapters that need the
// underlying pieces can reach them through Registry and Executor.
type Engine struct {
	registry *registry.Registry
	executor *engine.Executor
	logger   *slog.Logger
	nodeCfg  nodes.Config
	hooks    engine.Hooks
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithGraphStore wires a graph store so subgraph nodes can resolve
// stored graphs by ID or name.
func WithGraphStore(store ports.GraphStore) Option {
	return func(e *Engine) {
		e.nodeCfg.Graphs = store
	}
}

// WithContextStore wires a conversation context store for chat nodes,
// replacing the default in-process store.
func WithContextStore(store ports.ContextStore) Option {
	return func(e *Engine) {
		e.nodeCfg.Contexts = store
	}
}

// WithChatProvider sets the completion backend for chat nodes,
// replacing the default mock provider.
func WithChatProvider(p nodes.ChatProvider) Option {
	return func(e *Engine) {
		e.nodeCfg.Chat = p
	}
}

// WithHooks registers node lifecycle hooks (metrics, tracing).
func WithHooks(h engine.Hooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// New initializes a new Lattice Engine with the built-in node types
// registered. The zero configuration is fully usable: chat nodes use
// a mock provider, contexts live in process, and subgraph nodes report
// a soft error until a graph store is wired.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry: registry.New(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.executor = engine.New(e.registry,
		engine.WithLogger(e.logger),
		engine.WithHooks(e.hooks),
	)

	cfg := e.nodeCfg
	cfg.Runner = e.executor
	nodes.RegisterBuiltins(e.registry, cfg)

	return e
}

// Registry exposes the node registry so hosts can add custom node types.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Executor exposes the underlying executor for adapters that need
// batch or instance execution.
func (e *Engine) Executor() *engine.Executor { return e.executor }

// Validate checks a graph's structure without executing it.
func (e *Engine) Validate(g *graph.Graph) (bool, []string) {
	return graph.Validate(g)
}

// Execute runs a graph sequentially and returns the final result. On
// node failure the result still carries partial outputs alongside the
// error.
func (e *Engine) Execute(ctx context.Context, g *graph.Graph, inputs map[string]any) (engine.Result, error) {
	run, err := e.executor.Execute(ctx, g, inputs)
	return run.Result(), err
}

// ExecuteParallel runs independent nodes of each dependency level
// concurrently.
func (e *Engine) ExecuteParallel(ctx context.Context, g *graph.Graph, inputs map[string]any) (engine.Result, error) {
	run, err := e.executor.ExecuteBatches(ctx, g, inputs)
	return run.Result(), err
}

// ExecuteStreaming runs a graph and emits progress events on the
// returned channel. The channel closes when the run ends.
func (e *Engine) ExecuteStreaming(ctx context.Context, g *graph.Graph, inputs map[string]any) <-chan engine.Event {
	return e.executor.ExecuteStreaming(ctx, g, inputs)
}
