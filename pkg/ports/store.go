package ports

import (
	"context"
	"errors"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
)

// ErrGraphNotFound is returned by GraphStore lookups that match nothing.
var ErrGraphNotFound = errors.New("graph not found")

// ErrInstanceNotFound is returned by InstanceStore lookups that match nothing.
var ErrInstanceNotFound = errors.New("instance not found")

// ErrExecutionNotFound is returned by ExecutionStore lookups that match nothing.
var ErrExecutionNotFound = errors.New("execution not found")

// GraphStore defines the interface for persisting graph definitions.
type GraphStore interface {
	// Save persists a graph under its ID, overwriting any previous
	// version.
	Save(ctx context.Context, g *graph.Graph) error

	// Load retrieves a graph by ID.
	// Returns ErrGraphNotFound if no graph has that ID.
	Load(ctx context.Context, id string) (*graph.Graph, error)

	// Resolve retrieves a graph by ID or, failing that, by exact name.
	// Subgraph nodes reference their target graph either way.
	Resolve(ctx context.Context, idOrName string) (*graph.Graph, error)

	// List returns all stored graphs.
	List(ctx context.Context) ([]*graph.Graph, error)

	// Delete removes a graph by ID.
	Delete(ctx context.Context, id string) error
}

// ExecutionStore records finished execution results for later
// inspection. Implementations may bound retention.
type ExecutionStore interface {
	// Record persists one execution result.
	Record(ctx context.Context, result engine.Result) error

	// Get retrieves a result by execution ID.
	// Returns ErrExecutionNotFound if no result has that ID.
	Get(ctx context.Context, executionID string) (engine.Result, error)

	// ListByGraph returns the recorded results for one graph, newest
	// first.
	ListByGraph(ctx context.Context, graphID string) ([]engine.Result, error)
}

// InstanceStore persists long-lived graph instances across runs.
type InstanceStore interface {
	// Save persists an instance under its ID.
	Save(ctx context.Context, inst *engine.Instance) error

	// Load retrieves an instance by ID.
	// Returns ErrInstanceNotFound if no instance has that ID.
	Load(ctx context.Context, id string) (*engine.Instance, error)

	// List returns all instances of one graph.
	List(ctx context.Context, graphID string) ([]*engine.Instance, error)

	// Delete removes an instance by ID.
	Delete(ctx context.Context, id string) error
}
