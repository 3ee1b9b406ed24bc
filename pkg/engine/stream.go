package engine

import (
	"context"
	"time"

	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
	"github.com/latticelabs/lattice/pkg/schema"
)

// ExecuteStreaming runs a graph sequentially and emits progress
// events on the returned channel: one node_chunk per produced chunk
// for streaming-capable nodes, one node_complete per finished node,
// and a terminal execution_complete or execution_error. The channel
// is closed after the terminal event. A failure is reported as an
// event, not an error return; nodes not yet started stay pending.
//
// The run stops early when ctx is cancelled or when the consumer
// abandons the channel while an event is pending.
func (x *Executor) ExecuteStreaming(ctx context.Context, g *graph.Graph, inputs map[string]any) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		emit := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		run := NewExecution(g, inputs)

		order, err := graph.ExecutionOrder(g)
		if err != nil {
			ev := newEvent(EventExecutionError)
			ev.Error = err.Error()
			emit(ev)
			return
		}

		x.logger.Info("streaming execution",
			"graph_id", g.ID,
			"execution_id", run.ExecutionID(),
			"nodes", len(order),
		)

		for _, nodeID := range order {
			data := g.Nodes[nodeID]

			var runErr error
			if x.nodeSupportsStreaming(data) {
				runErr = x.runNodeStreaming(ctx, run, nodeID, func(chunk string) bool {
					ev := newEvent(EventNodeChunk)
					ev.NodeID = nodeID
					ev.Chunk = chunk
					return emit(ev)
				})
			} else {
				runErr = x.runNode(ctx, run, nodeID)
			}

			if runErr != nil {
				run.markCompleted()
				ev := newEvent(EventExecutionError)
				ev.Error = runErr.Error()
				emit(ev)
				return
			}

			ev := newEvent(EventNodeComplete)
			ev.NodeID = nodeID
			ev.Status = string(run.Status(nodeID))
			ev.Outputs = run.NodeOutputs(nodeID)
			if !emit(ev) {
				return
			}
		}

		run.markCompleted()
		final := newEvent(EventExecutionComplete)
		final.Status = string(graph.StatusCompleted)
		final.Outputs = make(map[string]any)
		for id, ports := range run.Outputs() {
			final.Outputs[id] = ports
		}
		emit(final)
	}()

	return events
}

// nodeSupportsStreaming checks the node's "streaming" parameter and
// the executor's set of always-streaming node types.
func (x *Executor) nodeSupportsStreaming(data *graph.Node) bool {
	return node.ParamBool(data.Parameters, "streaming", false) || x.streamingTypes[data.Type]
}

// runNodeStreaming mirrors runNode but forwards chunks through emit.
// Handlers implementing node.Streamer are drained first and then
// asked for their materialized outputs via Execute; plain handlers
// run normally and their "response" output, if any, is forwarded as a
// single chunk.
func (x *Executor) runNodeStreaming(ctx context.Context, run *Execution, nodeID string, emit func(string) bool) error {
	data := run.Graph().Nodes[nodeID]
	started := time.Now()

	run.SetStatus(nodeID, graph.StatusRunning)
	if x.hooks.OnNodeStart != nil {
		x.hooks.OnNodeStart(nodeID, data.Type)
	}
	x.logger.Debug("streaming node", "node_id", nodeID, "node_type", data.Type)

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

	if streamer, ok := handler.(node.Streamer); ok {
		chunks, err := streamer.ExecuteStreaming(ctx, run, data)
		if err != nil {
			return fail(err)
		}
		for chunk := range chunks {
			if !emit(chunk) {
				// Unblock the producer before abandoning the stream so
				// providers on unbuffered channels do not leak.
				go func() {
					for range chunks {
					}
				}()
				return fail(ctx.Err())
			}
		}

		// Materialize the full output mapping after the stream ends.
		// The Streamer contract requires this follow-up call to be
		// side-effect safe.
		outputs, err := handler.Execute(ctx, run, data)
		if err != nil {
			return fail(err)
		}
		for port, value := range outputs {
			run.SetOutput(nodeID, port, value)
		}
	} else {
		outputs, err := handler.Execute(ctx, run, data)
		if err != nil {
			return fail(err)
		}
		for port, value := range outputs {
			run.SetOutput(nodeID, port, value)
		}
		if response, ok := outputs["response"].(string); ok {
			if !emit(response) {
				return fail(ctx.Err())
			}
		}
	}

	run.SetStatus(nodeID, graph.StatusCompleted)
	if x.hooks.OnNodeFinish != nil {
		x.hooks.OnNodeFinish(nodeID, data.Type, graph.StatusCompleted, time.Since(started))
	}
	return nil
}
