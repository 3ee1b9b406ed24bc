package graph

import (
	"fmt"
	"sort"
	"time"
)

// NodeStatus tracks a node's progress through one execution.
type NodeStatus string

const (
	StatusPending   NodeStatus = "pending"
	StatusRunning   NodeStatus = "running"
	StatusCompleted NodeStatus = "completed"
	StatusFailed    NodeStatus = "failed"
	StatusSkipped   NodeStatus = "skipped"
)

// Terminal reports whether the status is final within one execution.
// Statuses never transition out of a terminal state.
func (s NodeStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Node is one typed unit of computation in a graph.
// Type is the key into the node registry; Parameters carry
// node-specific configuration. Position is opaque UI metadata.
type Node struct {
	ID         string             `json:"node_id" yaml:"node_id"`
	Type       string             `json:"node_type" yaml:"node_type"`
	Position   map[string]float64 `json:"position,omitempty" yaml:"position,omitempty"`
	Parameters map[string]any     `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Edge is a directed data-flow connection: the target node's input
// port is fed by the source node's output port.
type Edge struct {
	ID         string `json:"edge_id" yaml:"edge_id"`
	SourceNode string `json:"source_node" yaml:"source_node"`
	SourcePort string `json:"source_port" yaml:"source_port"`
	TargetNode string `json:"target_node" yaml:"target_node"`
	TargetPort string `json:"target_port" yaml:"target_port"`
}

// Signature returns the identity 4-tuple used for duplicate detection.
func (e Edge) Signature() string {
	return fmt.Sprintf("%s.%s->%s.%s", e.SourceNode, e.SourcePort, e.TargetNode, e.TargetPort)
}

// Graph is a complete graph definition. Nodes are keyed by node ID;
// Edges keep their declared order, which makes planner output
// deterministic for identical input.
type Graph struct {
	ID        string           `json:"graph_id" yaml:"graph_id"`
	Name      string           `json:"name" yaml:"name"`
	Nodes     map[string]*Node `json:"nodes" yaml:"nodes"`
	Edges     []Edge           `json:"edges" yaml:"edges"`
	Metadata  map[string]any   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// New creates an empty graph.
func New(id, name string) *Graph {
	return &Graph{
		ID:        id,
		Name:      name,
		Nodes:     make(map[string]*Node),
		Edges:     nil,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now().UTC(),
	}
}

// AddNode inserts a node, keyed by its ID.
func (g *Graph) AddNode(n *Node) *Graph {
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	g.Nodes[n.ID] = n
	return g
}

// AddEdge appends an edge. An empty edge ID is derived from the
// endpoint pairs so edges are always addressable.
func (g *Graph) AddEdge(e Edge) *Graph {
	if e.ID == "" {
		e.ID = fmt.Sprintf("%s_%s-%s_%s", e.SourceNode, e.SourcePort, e.TargetNode, e.TargetPort)
	}
	g.Edges = append(g.Edges, e)
	return g
}

// NodeIDs returns all node IDs in lexicographic order. Go maps do not
// preserve insertion order, so this is the stable iteration order the
// planner builds on.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
