package memory

import (
	"context"
	"sync"

	"github.com/latticelabs/lattice/pkg/ports"
)

// ContextStore is an in-memory content-addressable ports.ContextStore.
// Entries are immutable and never expire.
type ContextStore struct {
	mu       sync.RWMutex
	contexts map[string][]ports.Message
}

var _ ports.ContextStore = (*ContextStore)(nil)

func NewContextStore() *ContextStore {
	return &ContextStore{contexts: make(map[string][]ports.Message)}
}

func (s *ContextStore) Store(_ context.Context, messages []ports.Message) (string, error) {
	key := ports.ContextKey(messages)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contexts[key]; !exists {
		stored := make([]ports.Message, len(messages))
		copy(stored, messages)
		s.contexts[key] = stored
	}
	return key, nil
}

func (s *ContextStore) Load(_ context.Context, key string) ([]ports.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages, ok := s.contexts[key]
	if !ok {
		return nil, ports.ErrContextNotFound
	}
	out := make([]ports.Message, len(messages))
	copy(out, messages)
	return out, nil
}
