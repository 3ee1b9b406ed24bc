package registry_test

import (
	"context"
	"testing"

	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
	"github.com/latticelabs/lattice/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct{ spec node.Spec }

func (f *fakeNode) Spec() node.Spec { return f.spec }

func (f *fakeNode) Execute(context.Context, node.Run, *graph.Node) (map[string]any, error) {
	return map[string]any{}, nil
}

func fakeFactory(nodeType string) node.Factory {
	return func() node.Handler {
		return &fakeNode{spec: node.Spec{Type: nodeType, DisplayName: nodeType}}
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := registry.New()
	r.Register("alpha", fakeFactory("alpha"))

	f, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", f().Spec().Type)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_TypesSorted(t *testing.T) {
	r := registry.New()
	r.Register("zeta", fakeFactory("zeta"))
	r.Register("alpha", fakeFactory("alpha"))
	r.Register("mid", fakeFactory("mid"))

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Types())
}

func TestRegistry_AllReturnsCopy(t *testing.T) {
	r := registry.New()
	r.Register("alpha", fakeFactory("alpha"))

	all := r.All()
	delete(all, "alpha")

	_, ok := r.Get("alpha")
	assert.True(t, ok, "mutating the copy must not affect the registry")
}

func TestRegistry_Specs(t *testing.T) {
	r := registry.New()
	r.Register("b", fakeFactory("b"))
	r.Register("a", fakeFactory("a"))

	specs := r.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "a", specs[0].Type)
	assert.Equal(t, "b", specs[1].Type)
}
