package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/latticelabs/lattice/internal/logging"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
	"github.com/latticelabs/lattice/pkg/registry"
	"github.com/latticelabs/lattice/pkg/schema"
)

// ExecutionError is raised during a run: unknown node type, missing
// required inputs, or an error surfaced from a node's Execute. It
// always carries the failing node ID and the underlying cause, and it
// always aborts the remaining run.
type ExecutionError struct {
	NodeID string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %s failed: %v", e.NodeID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Hooks observe node lifecycle transitions. Both callbacks are
// optional and may be invoked from concurrent goroutines in batched
// mode.
type Hooks struct {
	OnNodeStart  func(nodeID, nodeType string)
	OnNodeFinish func(nodeID, nodeType string, status graph.NodeStatus, elapsed time.Duration)
}

// Executor orchestrates planner, execution context and node handlers
// to run a graph to completion.
type Executor struct {
	registry       *registry.Registry
	logger         *slog.Logger
	hooks          Hooks
	streamingTypes map[string]bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Executor) { x.logger = l }
}

// WithHooks sets lifecycle hooks (metrics, tracing).
func WithHooks(h Hooks) Option {
	return func(x *Executor) { x.hooks = h }
}

// WithStreamingTypes replaces the set of node types that stream by
// default, without requiring a "streaming" parameter on the node.
func WithStreamingTypes(types ...string) Option {
	return func(x *Executor) {
		x.streamingTypes = make(map[string]bool, len(types))
		for _, t := range types {
			x.streamingTypes[t] = true
		}
	}
}

// New creates an executor backed by a node registry.
func New(reg *registry.Registry, opts ...Option) *Executor {
	x := &Executor{
		registry:       reg,
		logger:         logging.NewNop(),
		streamingTypes: map[string]bool{"chat": true},
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Execute runs a graph sequentially in topological order and returns
// the completed execution. The returned execution is also non-nil on
// failure so callers can inspect partial results.
func (x *Executor) Execute(ctx context.Context, g *graph.Graph, inputs map[string]any) (*Execution, error) {
	run := NewExecution(g, inputs)
	return run, x.Resume(ctx, run)
}

// Resume runs an existing execution from scratch. Used by instances,
// where one Execution carries inputs seeded from a previous run.
func (x *Executor) Resume(ctx context.Context, run *Execution) error {
	run.resetForRun()

	order, err := graph.ExecutionOrder(run.Graph())
	if err != nil {
		// Structural failure: execution never starts.
		return err
	}

	x.logger.Info("executing graph",
		"graph_id", run.Graph().ID,
		"execution_id", run.ExecutionID(),
		"nodes", len(order),
	)

	for _, nodeID := range order {
		if err := x.runNode(ctx, run, nodeID); err != nil {
			run.markCompleted()
			x.logger.Error("graph execution failed", "graph_id", run.Graph().ID, "err", err)
			return err
		}
	}

	run.markCompleted()
	x.logger.Info("graph execution completed", "graph_id", run.Graph().ID)
	return nil
}

// ExecuteBatches runs a graph wave by wave: all nodes of one
// dependency batch run concurrently, and the next batch starts only
// once the whole batch has resolved. On failure every node of the
// batch is still awaited, then the first error in batch order is
// surfaced and the run aborts.
func (x *Executor) ExecuteBatches(ctx context.Context, g *graph.Graph, inputs map[string]any) (*Execution, error) {
	run := NewExecution(g, inputs)

	batches, err := graph.ParallelBatches(g)
	if err != nil {
		return run, err
	}

	x.logger.Info("executing graph in batches",
		"graph_id", g.ID,
		"execution_id", run.ExecutionID(),
		"batches", len(batches),
	)

	for i, batch := range batches {
		x.logger.Debug("executing batch", "batch", i+1, "of", len(batches), "nodes", len(batch))

		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		for j, nodeID := range batch {
			wg.Add(1)
			go func(j int, nodeID string) {
				defer wg.Done()
				errs[j] = x.runNode(ctx, run, nodeID)
			}(j, nodeID)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				run.markCompleted()
				x.logger.Error("graph execution failed", "graph_id", g.ID, "err", err)
				return run, err
			}
		}
	}

	run.markCompleted()
	x.logger.Info("graph execution completed", "graph_id", g.ID)
	return run, nil
}

// runNode executes a single node: status bookkeeping, registry
// lookup, input collection and validation, handler invocation, output
// recording. Every failure path marks the node failed, records the
// error text and returns an *ExecutionError that aborts the run.
func (x *Executor) runNode(ctx context.Context, run *Execution, nodeID string) error {
	data := run.Graph().Nodes[nodeID]
	started := time.Now()

	run.SetStatus(nodeID, graph.StatusRunning)
	if x.hooks.OnNodeStart != nil {
		x.hooks.OnNodeStart(nodeID, data.Type)
	}
	x.logger.Debug("executing node", "node_id", nodeID, "node_type", data.Type)

	fail := func(err error) error {
		run.SetStatus(nodeID, graph.StatusFailed)
		run.setError(nodeID, err.Error())
		if x.hooks.OnNodeFinish != nil {
			x.hooks.OnNodeFinish(nodeID, data.Type, graph.StatusFailed, time.Since(started))
		}
		x.logger.Error("node failed", "node_id", nodeID, "err", err)
		return &ExecutionError{NodeID: nodeID, Err: err}
	}

	handler, err := x.handlerFor(data)
	if err != nil {
		return fail(err)
	}

	if err := schema.ValidateParameters(handler.Spec(), data.Parameters); err != nil {
		return fail(err)
	}

	inputs := collectInputs(run, handler.Spec(), nodeID)
	if err := validateInputs(handler, inputs); err != nil {
		return fail(err)
	}

	outputs, err := handler.Execute(ctx, run, data)
	if err != nil {
		return fail(err)
	}
	for port, value := range outputs {
		run.SetOutput(nodeID, port, value)
	}

	run.SetStatus(nodeID, graph.StatusCompleted)
	if x.hooks.OnNodeFinish != nil {
		x.hooks.OnNodeFinish(nodeID, data.Type, graph.StatusCompleted, time.Since(started))
	}
	x.logger.Debug("node completed", "node_id", nodeID)
	return nil
}

// handlerFor resolves the node type in the registry and constructs a
// fresh handler for this invocation.
func (x *Executor) handlerFor(data *graph.Node) (node.Handler, error) {
	factory, ok := x.registry.Get(data.Type)
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", data.Type)
	}
	return factory(), nil
}

// collectInputs resolves every declared input port: connected edge
// value first, then the port default when the port is required.
func collectInputs(run *Execution, spec node.Spec, nodeID string) map[string]any {
	inputs := make(map[string]any)
	for _, port := range spec.Inputs {
		if value := run.InputValue(nodeID, port.Name); value != nil {
			inputs[port.Name] = value
		} else if port.Required && port.Default != nil {
			inputs[port.Name] = port.Default
		}
	}
	return inputs
}

// validateInputs applies the handler's own validator when it has one,
// falling back to the spec-level required-port check.
func validateInputs(h node.Handler, inputs map[string]any) error {
	if v, ok := h.(node.InputValidator); ok {
		if !v.ValidateInputs(inputs) {
			return fmt.Errorf("invalid inputs")
		}
		return nil
	}
	if missing := h.Spec().MissingInputs(inputs); len(missing) > 0 {
		return fmt.Errorf("missing required inputs: %v", missing)
	}
	return nil
}
