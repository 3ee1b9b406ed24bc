package engine

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
)

// Execution is the mutable, run-scoped record of one graph run:
// caller inputs, per-node outputs, statuses and error texts. It is
// owned by exactly one execution; the executor and the node handlers
// it invokes are the only writers. Output and status maps are guarded
// so nodes of one parallel batch can record results concurrently.
type Execution struct {
	id     string
	graph  *graph.Graph
	inputs map[string]any

	mu          sync.Mutex
	outputs     map[string]map[string]any
	status      map[string]graph.NodeStatus
	errs        map[string]string
	startedAt   time.Time
	completedAt time.Time
}

var _ node.Run = (*Execution)(nil)

// NewExecution creates a fresh execution for a graph. All nodes start
// out pending.
func NewExecution(g *graph.Graph, inputs map[string]any) *Execution {
	if inputs == nil {
		inputs = make(map[string]any)
	}
	e := &Execution{
		id:        newExecutionID(),
		graph:     g,
		inputs:    inputs,
		outputs:   make(map[string]map[string]any),
		status:    make(map[string]graph.NodeStatus),
		errs:      make(map[string]string),
		startedAt: time.Now().UTC(),
	}
	for id := range g.Nodes {
		e.status[id] = graph.StatusPending
	}
	return e
}

func newExecutionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back
		// to a timestamp so the run can still be identified.
		return hex.EncodeToString([]byte(time.Now().UTC().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(buf)
}

// ExecutionID identifies this run.
func (e *Execution) ExecutionID() string { return e.id }

// Graph returns the graph under execution. Callers must treat it as
// read-only.
func (e *Execution) Graph() *graph.Graph { return e.graph }

// ExecutionInputs returns the caller-supplied initial inputs.
func (e *Execution) ExecutionInputs() map[string]any { return e.inputs }

// InputValue resolves the value feeding (nodeID, port). It scans the
// graph's edges for the edge targeting that port and returns the
// recorded output of the edge's source, or nil when no edge is
// connected or the source has not produced output yet. The validator
// guarantees at most one edge per input port.
func (e *Execution) InputValue(nodeID, port string) any {
	for _, edge := range e.graph.Edges {
		if edge.TargetNode == nodeID && edge.TargetPort == port {
			e.mu.Lock()
			defer e.mu.Unlock()
			return e.outputs[edge.SourceNode][edge.SourcePort]
		}
	}
	return nil
}

// SetOutput merges a value into the node's output mapping.
func (e *Execution) SetOutput(nodeID, port string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outputs[nodeID] == nil {
		e.outputs[nodeID] = make(map[string]any)
	}
	e.outputs[nodeID][port] = value
}

// SetStatus overwrites a node's status.
func (e *Execution) SetStatus(nodeID string, status graph.NodeStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status[nodeID] = status
}

// Status returns a node's current status.
func (e *Execution) Status(nodeID string) graph.NodeStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.status[nodeID]; ok {
		return s
	}
	return graph.StatusPending
}

// NodeOutputs returns a copy of one node's recorded outputs.
func (e *Execution) NodeOutputs(nodeID string) map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]any, len(e.outputs[nodeID]))
	for k, v := range e.outputs[nodeID] {
		out[k] = v
	}
	return out
}

// Outputs returns a copy of all recorded node outputs.
func (e *Execution) Outputs() map[string]map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]map[string]any, len(e.outputs))
	for id, ports := range e.outputs {
		m := make(map[string]any, len(ports))
		for k, v := range ports {
			m[k] = v
		}
		out[id] = m
	}
	return out
}

// NodeError returns the recorded error text for a node, if any.
func (e *Execution) NodeError(nodeID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	msg, ok := e.errs[nodeID]
	return msg, ok
}

// Errors returns a copy of all recorded node errors.
func (e *Execution) Errors() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.errs))
	for k, v := range e.errs {
		out[k] = v
	}
	return out
}

// StartedAt returns when the execution was created.
func (e *Execution) StartedAt() time.Time { return e.startedAt }

// CompletedAt returns when the execution finished, or the zero time
// while it is still running.
func (e *Execution) CompletedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completedAt
}

func (e *Execution) setError(nodeID, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs[nodeID] = msg
}

func (e *Execution) markCompleted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completedAt = time.Now().UTC()
}

func (e *Execution) resetForRun() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startedAt = time.Now().UTC()
	e.completedAt = time.Time{}
	for id := range e.graph.Nodes {
		e.status[id] = graph.StatusPending
	}
}

// Result is an immutable snapshot of a finished execution, the shape
// persistence and API layers consume.
type Result struct {
	ExecutionID string                      `json:"execution_id"`
	GraphID     string                      `json:"graph_id"`
	Outputs     map[string]map[string]any   `json:"node_outputs"`
	Status      map[string]graph.NodeStatus `json:"node_status"`
	Errors      map[string]string           `json:"errors"`
	StartedAt   time.Time                   `json:"started_at"`
	CompletedAt time.Time                   `json:"completed_at"`
}

// Result snapshots the execution's current state.
func (e *Execution) Result() Result {
	outputs := e.Outputs()
	errs := e.Errors()

	e.mu.Lock()
	defer e.mu.Unlock()
	status := make(map[string]graph.NodeStatus, len(e.status))
	for k, v := range e.status {
		status[k] = v
	}
	return Result{
		ExecutionID: e.id,
		GraphID:     e.graph.ID,
		Outputs:     outputs,
		Status:      status,
		Errors:      errs,
		StartedAt:   e.startedAt,
		CompletedAt: e.completedAt,
	}
}
