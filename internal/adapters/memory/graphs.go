// Package memory provides in-memory implementations of the storage
// ports, suitable for tests, the CLI and single-process servers.
package memory

import (
	"context"
	"sync"

	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/ports"
)

// GraphStore is a thread-safe in-memory ports.GraphStore.
type GraphStore struct {
	mu     sync.RWMutex
	graphs map[string]*graph.Graph
}

var _ ports.GraphStore = (*GraphStore)(nil)

func NewGraphStore() *GraphStore {
	return &GraphStore{graphs: make(map[string]*graph.Graph)}
}

func (s *GraphStore) Save(_ context.Context, g *graph.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.ID] = g
	return nil
}

func (s *GraphStore) Load(_ context.Context, id string) (*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[id]
	if !ok {
		return nil, ports.ErrGraphNotFound
	}
	return g, nil
}

func (s *GraphStore) Resolve(ctx context.Context, idOrName string) (*graph.Graph, error) {
	if g, err := s.Load(ctx, idOrName); err == nil {
		return g, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.graphs {
		if g.Name == idOrName {
			return g, nil
		}
	}
	return nil, ports.ErrGraphNotFound
}

func (s *GraphStore) List(_ context.Context) ([]*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*graph.Graph, 0, len(s.graphs))
	for _, g := range s.graphs {
		out = append(out, g)
	}
	return out, nil
}

func (s *GraphStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.graphs, id)
	return nil
}
