// Package mqtt publishes execution events to an MQTT broker so
// external dashboards and automations can follow graph runs.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/ports"
)

// BrokerURL returns the MQTT broker URL from env or default.
func BrokerURL() string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return "tcp://localhost:1883"
}

// Sink implements ports.EventSink over a Paho MQTT client. Events are
// published to "<topicBase>/<streamID>/<eventType>" with QoS 0;
// delivery is best effort and never fails an execution.
type Sink struct {
	client    paho.Client
	topicBase string
	logger    *slog.Logger
}

var _ ports.EventSink = (*Sink)(nil)

// NewSink creates a connected sink. Connection failures are returned
// so the caller can decide to run without event publishing.
func NewSink(clientID, topicBase string, logger *slog.Logger) (*Sink, error) {
	opts := paho.NewClientOptions().
		AddBroker(BrokerURL()).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	if topicBase == "" {
		topicBase = "lattice/executions"
	}
	return &Sink{client: client, topicBase: topicBase, logger: logger}, nil
}

// Publish delivers one event. Errors are logged, not returned as
// failures, so a flaky broker cannot abort a run.
func (s *Sink) Publish(_ context.Context, streamID string, ev engine.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/%s", s.topicBase, streamID, ev.Type)
	token := s.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		s.logger.Warn("mqtt publish timeout", "topic", topic)
		return nil
	}
	if err := token.Error(); err != nil {
		s.logger.Warn("mqtt publish failed", "topic", topic, "err", err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *Sink) Close() error {
	s.client.Disconnect(1000)
	return nil
}
