/*
Package lattice is a typed graph execution engine for building data
pipelines, chat workflows, and composable automations.

Graphs are directed acyclic networks of typed nodes. Each node type
declares input and output ports; edges carry values between ports. The
engine validates the graph, plans a topological order, and executes
nodes sequentially, in parallel batches, or with streaming events.

# Architecture

Lattice follows a hexagonal layout. The core (pkg/graph, pkg/node,
pkg/engine, pkg/registry) has no infrastructure dependencies; storage
and transports plug in through the interfaces in pkg/ports. The
internal/adapters tree ships in-memory, Redis, Postgres, HTTP, MCP,
and MQTT adapters.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/latticelabs/lattice"
		"github.com/latticelabs/lattice/pkg/graph"
	)

	func main() {
		eng := lattice.New()

		g := graph.New("demo", "Demo")
		g.AddNode(&graph.Node{ID: "in", Type: "input", Parameters: map[string]any{"label": "text"}})
		g.AddNode(&graph.Node{ID: "up", Type: "text_transform", Parameters: map[string]any{"operation": "uppercase"}})
		g.AddEdge(graph.Edge{SourceNode: "in", SourcePort: "output", TargetNode: "up", TargetPort: "text"})

		result, err := eng.Execute(context.Background(), g, map[string]any{"text": "hello"})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(result.Outputs["up"]["output"]) // HELLO
	}

Custom node types implement node.Handler and register through the
engine's Registry. See pkg/node for the handler contract.
*/
package lattice
