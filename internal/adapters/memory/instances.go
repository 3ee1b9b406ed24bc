package memory

import (
	"context"
	"sync"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/ports"
)

// InstanceStore is a thread-safe in-memory ports.InstanceStore.
type InstanceStore struct {
	mu        sync.RWMutex
	instances map[string]*engine.Instance
}

var _ ports.InstanceStore = (*InstanceStore)(nil)

func NewInstanceStore() *InstanceStore {
	return &InstanceStore{instances: make(map[string]*engine.Instance)}
}

func (s *InstanceStore) Save(_ context.Context, inst *engine.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID] = inst
	return nil
}

func (s *InstanceStore) Load(_ context.Context, id string) (*engine.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, ports.ErrInstanceNotFound
	}
	return inst, nil
}

func (s *InstanceStore) List(_ context.Context, graphID string) ([]*engine.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*engine.Instance
	for _, inst := range s.instances {
		if graphID == "" || inst.GraphID == graphID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (s *InstanceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, id)
	return nil
}
