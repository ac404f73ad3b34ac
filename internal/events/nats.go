package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSEmitter publishes session events to a NATS subject so external viewers
// can subscribe without the pipeline knowing about them.
type NATSEmitter struct {
	conn    *nats.Conn
	subject string
}

// NewNATSEmitter connects to the given NATS URL. The subject prefix defaults
// to "forgeline.sessions" when empty; events are published to
// "<prefix>.<event name>" with colons replaced by dots.
func NewNATSEmitter(url, subjectPrefix string) (*NATSEmitter, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if subjectPrefix == "" {
		subjectPrefix = "forgeline.sessions"
	}
	conn, err := nats.Connect(url, nats.Name("forgeline"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSEmitter{conn: conn, subject: subjectPrefix}, nil
}

// Emit satisfies the emitter contract installed via SetCustomEmitter.
func (e *NATSEmitter) Emit(ctx context.Context, name string, evt SessionEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("events: failed to marshal nats event: %v", err)
		return
	}
	subject := e.subject + "." + strings.ReplaceAll(name, ":", ".")
	if err := e.conn.Publish(subject, data); err != nil {
		log.Printf("events: nats publish failed: %v", err)
	}
}

// Close drains the connection.
func (e *NATSEmitter) Close() {
	if e.conn != nil {
		_ = e.conn.Drain()
	}
}
