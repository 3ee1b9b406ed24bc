// Package node defines the contract every node implementation
// fulfills: a static Spec describing ports and parameters, an Execute
// method producing output-port values, and optionally a streaming
// variant. The Run interface is the node's window into the execution
// context; it is implemented by pkg/engine.
package node
