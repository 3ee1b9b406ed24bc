/*
Package nodes provides the built-in node types: graph input/output,
text processing, JSON extraction, provider-backed chat and recursive
subgraph execution.

All built-ins follow the soft-error convention: expected "no value"
conditions (missing message, bad mapping JSON, unresolvable subgraph)
are encoded into the output mapping so downstream nodes still run,
and a hard error return is reserved for conditions the graph cannot
reasonably continue from.
*/
package nodes
