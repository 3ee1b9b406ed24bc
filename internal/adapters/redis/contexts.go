// Package redis implements the conversation context store on Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/latticelabs/lattice/pkg/ports"
)

// ContextStore implements ports.ContextStore using Redis. Entries are
// immutable: a key always denotes the same content, so storing an
// existing key only refreshes its TTL.
type ContextStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ ports.ContextStore = (*ContextStore)(nil)

type Option func(*ContextStore)

// WithTTL sets the expiration for stored contexts.
func WithTTL(ttl time.Duration) Option {
	return func(s *ContextStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for stored contexts.
func WithPrefix(prefix string) Option {
	return func(s *ContextStore) {
		s.prefix = prefix
	}
}

// New creates a Redis context store with options.
func New(address, password string, db int, opts ...Option) *ContextStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis context store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *ContextStore {
	store := &ContextStore{
		client: client,
		prefix: "lattice:ctx:",
		ttl:    24 * time.Hour,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *ContextStore) key(contextKey string) string {
	return s.prefix + contextKey
}

// Store persists the messages under their content key.
func (s *ContextStore) Store(ctx context.Context, messages []ports.Message) (string, error) {
	key := ports.ContextKey(messages)

	exists, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return "", fmt.Errorf("failed to check redis: %w", err)
	}
	if exists > 0 {
		// Content already stored; just keep it warm.
		if s.ttl > 0 {
			_ = s.client.Expire(ctx, s.key(key), s.ttl).Err()
		}
		return key, nil
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("failed to marshal messages: %w", err)
	}

	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to save to redis: %w", err)
	}
	return key, nil
}

// Load retrieves the messages behind a content key.
func (s *ContextStore) Load(ctx context.Context, key string) ([]ports.Message, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, ports.ErrContextNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var messages []ports.Message
	if err := json.Unmarshal([]byte(val), &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return messages, nil
}

// Close closes the redis client.
func (s *ContextStore) Close() error {
	return s.client.Close()
}
