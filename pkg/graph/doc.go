// Package graph defines the data model for lattice graphs and the
// structural tooling that runs before any node executes: validation
// (cycles, dangling edges, duplicate edges, fan-in conflicts) and
// execution planning (topological order, dependency-parallel batches).
//
// A Graph is immutable for the duration of a run. The executor in
// pkg/engine consumes the planner's output; nothing in this package
// performs node execution or mutates the graph.
package graph
