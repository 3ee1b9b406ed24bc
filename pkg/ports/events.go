package ports

import (
	"context"

	"github.com/latticelabs/lattice/pkg/engine"
)

// EventSink publishes execution events to an external consumer, such
// as an MQTT broker. Publish failures must not fail the execution;
// implementations log and move on.
type EventSink interface {
	// Publish delivers one event under a stream identifier, typically
	// the graph or execution ID.
	Publish(ctx context.Context, streamID string, ev engine.Event) error

	// Close releases the underlying connection.
	Close() error
}
