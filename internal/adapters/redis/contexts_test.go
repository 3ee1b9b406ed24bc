package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticelabs/lattice/internal/adapters/redis"
	"github.com/latticelabs/lattice/pkg/ports"
)

func newTestStore(t *testing.T, opts ...redis.Option) (*redis.ContextStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisContextStore_Contract(t *testing.T) {
	store, _ := newTestStore(t)
	ports.RunContextStoreContract(t, store)
}

func TestRedisContextStore_TTL(t *testing.T) {
	store, mr := newTestStore(t, redis.WithTTL(time.Minute))

	key, err := store.Store(context.Background(), []ports.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	// Expiry past the TTL drops the entry.
	mr.FastForward(2 * time.Minute)
	_, err = store.Load(context.Background(), key)
	assert.ErrorIs(t, err, ports.ErrContextNotFound)
}

func TestRedisContextStore_Prefix(t *testing.T) {
	store, mr := newTestStore(t, redis.WithPrefix("custom:"))

	key, err := store.Store(context.Background(), []ports.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.True(t, mr.Exists("custom:"+key))
}

func TestRedisContextStore_RestoreRefreshesTTL(t *testing.T) {
	store, mr := newTestStore(t, redis.WithTTL(time.Minute))
	messages := []ports.Message{{Role: "user", Content: "hi"}}

	key, err := store.Store(context.Background(), messages)
	require.NoError(t, err)

	mr.FastForward(30 * time.Second)
	again, err := store.Store(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	// The refresh keeps the entry alive past its original deadline.
	mr.FastForward(45 * time.Second)
	_, err = store.Load(context.Background(), key)
	assert.NoError(t, err)
}
