package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/ports"
)

// ExecutionStore is a bounded in-memory ports.ExecutionStore. Once
// maxRecords results are held, recording another evicts the oldest.
type ExecutionStore struct {
	mu         sync.RWMutex
	results    map[string]engine.Result
	order      []string
	maxRecords int
}

var _ ports.ExecutionStore = (*ExecutionStore)(nil)

func NewExecutionStore(maxRecords int) *ExecutionStore {
	if maxRecords <= 0 {
		maxRecords = 1000
	}
	return &ExecutionStore{
		results:    make(map[string]engine.Result),
		maxRecords: maxRecords,
	}
}

func (s *ExecutionStore) Record(_ context.Context, result engine.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[result.ExecutionID]; !exists {
		s.order = append(s.order, result.ExecutionID)
	}
	s.results[result.ExecutionID] = result

	for len(s.order) > s.maxRecords {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *ExecutionStore) Get(_ context.Context, executionID string) (engine.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[executionID]
	if !ok {
		return engine.Result{}, ports.ErrExecutionNotFound
	}
	return result, nil
}

func (s *ExecutionStore) ListByGraph(_ context.Context, graphID string) ([]engine.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []engine.Result
	for _, result := range s.results {
		if result.GraphID == graphID {
			out = append(out, result)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}
