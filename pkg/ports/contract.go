package ports

import (
	"context"
	"testing"
	"time"

	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunGraphStoreContract runs a suite of tests verifying that a
// GraphStore implementation adheres to the interface contract.
func RunGraphStoreContract(t *testing.T, store GraphStore) {
	ctx := context.Background()
	graphID := "contract-test-graph-" + time.Now().Format("20060102150405")

	sample := func(id, name string) *graph.Graph {
		g := graph.New(id, name)
		g.AddNode(&graph.Node{ID: "in", Type: "input", Parameters: map[string]any{"label": "prompt"}})
		g.AddNode(&graph.Node{ID: "out", Type: "output"})
		g.AddEdge(graph.Edge{SourceNode: "in", SourcePort: "output", TargetNode: "out", TargetPort: "input"})
		return g
	}

	t.Run("Save and Load", func(t *testing.T) {
		g := sample(graphID, "Contract Graph")
		require.NoError(t, store.Save(ctx, g))

		loaded, err := store.Load(ctx, graphID)
		require.NoError(t, err)
		assert.Equal(t, g.ID, loaded.ID)
		assert.Equal(t, g.Name, loaded.Name)
		assert.Len(t, loaded.Nodes, 2)
		assert.Len(t, loaded.Edges, 1)
		assert.Equal(t, "prompt", loaded.Nodes["in"].Parameters["label"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+graphID)
		assert.ErrorIs(t, err, ErrGraphNotFound)
	})

	t.Run("Resolve By Name", func(t *testing.T) {
		g := sample(graphID+"-named", "A Very Specific Name")
		require.NoError(t, store.Save(ctx, g))
		defer func() { _ = store.Delete(ctx, g.ID) }()

		byID, err := store.Resolve(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, g.ID, byID.ID)

		byName, err := store.Resolve(ctx, "A Very Specific Name")
		require.NoError(t, err)
		assert.Equal(t, g.ID, byName.ID)

		_, err = store.Resolve(ctx, "no such graph anywhere")
		assert.ErrorIs(t, err, ErrGraphNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sample(graphID, "Renamed")))
		loaded, err := store.Load(ctx, graphID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Name)
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := graphID+"-1", graphID+"-2"
		require.NoError(t, store.Save(ctx, sample(id1, "one")))
		require.NoError(t, store.Save(ctx, sample(id2, "two")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		graphs, err := store.List(ctx)
		require.NoError(t, err)

		ids := make([]string, 0, len(graphs))
		for _, g := range graphs {
			ids = append(ids, g.ID)
		}
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sample(graphID, "doomed")))
		require.NoError(t, store.Delete(ctx, graphID))

		_, err := store.Load(ctx, graphID)
		assert.ErrorIs(t, err, ErrGraphNotFound)
	})
}

// RunContextStoreContract runs a suite of tests verifying that a
// ContextStore implementation adheres to the interface contract.
func RunContextStoreContract(t *testing.T, store ContextStore) {
	ctx := context.Background()

	history := []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}

	t.Run("Store and Load", func(t *testing.T) {
		key, err := store.Store(ctx, history)
		require.NoError(t, err)
		require.NotEmpty(t, key)

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, history, loaded)
	})

	t.Run("Content Addressing", func(t *testing.T) {
		key1, err := store.Store(ctx, history)
		require.NoError(t, err)
		key2, err := store.Store(ctx, history)
		require.NoError(t, err)
		assert.Equal(t, key1, key2, "identical content must map to one key")

		different, err := store.Store(ctx, append(history, Message{Role: "user", Content: "more"}))
		require.NoError(t, err)
		assert.NotEqual(t, key1, different)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "0000000000000000")
		assert.ErrorIs(t, err, ErrContextNotFound)
	})
}
