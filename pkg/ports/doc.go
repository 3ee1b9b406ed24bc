/*
Package ports defines the driven ports (interfaces) for the Lattice engine.

These interfaces decouple the core execution logic from external
implementations, allowing the engine to work with various storage
backends, conversation context stores, and event sinks.

# Key Interfaces

  - GraphStore: persists graph definitions (memory, Postgres).
  - ExecutionStore: records finished execution results.
  - InstanceStore: persists long-lived graph instances.
  - ContextStore: content-addressable conversation context (Redis, memory).
  - EventSink: publishes execution events to external consumers (MQTT).
*/
package ports
