package nodes

import (
	"github.com/latticelabs/lattice/internal/adapters/memory"
	"github.com/latticelabs/lattice/pkg/node"
	"github.com/latticelabs/lattice/pkg/ports"
	"github.com/latticelabs/lattice/pkg/registry"
)

// Config carries the collaborators built-in nodes depend on. Zero
// values are usable: the chat node falls back to a mock provider and
// an in-process context store, and the subgraph node reports a soft
// error when no graph store is wired.
type Config struct {
	// Graphs resolves subgraph references by ID or name.
	Graphs ports.GraphStore

	// Contexts stores conversation history for the chat node.
	Contexts ports.ContextStore

	// Chat generates chat completions. Nil selects MockProvider.
	Chat ChatProvider

	// Runner executes subgraphs. Typically the owning engine's
	// executor, so subgraphs share the node registry.
	Runner SubgraphRunner
}

// RegisterBuiltins registers every built-in node type.
func RegisterBuiltins(reg *registry.Registry, cfg Config) {
	if cfg.Chat == nil {
		cfg.Chat = &MockProvider{}
	}
	if cfg.Contexts == nil {
		cfg.Contexts = memory.NewContextStore()
	}

	reg.Register("input", func() node.Handler { return &InputNode{} })
	reg.Register("output", func() node.Handler { return &OutputNode{} })
	reg.Register("text_transform", func() node.Handler { return &TextTransformNode{} })
	reg.Register("text_filter", func() node.Handler { return &TextFilterNode{} })
	reg.Register("text_concat", func() node.Handler { return &TextConcatNode{} })
	reg.Register("json_extract", func() node.Handler { return &JSONExtractNode{} })
	reg.Register("chat", func() node.Handler {
		return &ChatNode{Provider: cfg.Chat, Contexts: cfg.Contexts}
	})
	reg.Register("subgraph", func() node.Handler {
		return &SubgraphNode{Graphs: cfg.Graphs, Runner: cfg.Runner}
	})
}
