package engine

import "time"

// Event types emitted by ExecuteStreaming.
const (
	// EventNodeChunk carries one incremental text chunk of a
	// streaming-capable node.
	EventNodeChunk = "node_chunk"
	// EventNodeComplete marks one node reaching a terminal status,
	// with its recorded outputs.
	EventNodeComplete = "node_complete"
	// EventExecutionComplete is the final event of a successful run,
	// carrying all node outputs.
	EventExecutionComplete = "execution_complete"
	// EventExecutionError is the final event of a failed run. No
	// further events follow it.
	EventExecutionError = "execution_error"
)

// Event is one streaming progress update. For node_complete, Outputs
// maps port name to value; for execution_complete it maps node ID to
// that node's port/value mapping.
type Event struct {
	Type      string         `json:"type"`
	NodeID    string         `json:"node_id,omitempty"`
	Chunk     string         `json:"chunk,omitempty"`
	Status    string         `json:"status,omitempty"`
	Outputs   map[string]any `json:"outputs,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func newEvent(eventType string) Event {
	return Event{Type: eventType, Timestamp: time.Now().UTC()}
}
