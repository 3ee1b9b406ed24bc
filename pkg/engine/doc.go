// Package engine executes validated graphs. The Executor walks the
// planner's order, resolves every node's inputs through the graph's
// edges, invokes the registered node handler, and records outputs,
// statuses and errors on the run-scoped Execution.
//
// Three modes share the same per-node algorithm: sequential, batched
// (nodes inside one dependency wave run concurrently) and streaming
// (an event channel carrying per-chunk and per-node progress).
// The first failure always aborts the remaining run; there are no
// retries and no skip-and-continue semantics.
package engine
