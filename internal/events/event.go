package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

// Well-known event names consumed by external viewers.
const (
	SessionStatusEvent = "events:session:status"
	FileProgressEvent  = "events:session:file"
)

// SessionEvent is the payload pushed on every session status transition and
// per-file stage change. Delivery and transport are the consumer's
// responsibility; the pipeline only emits.
type SessionEvent struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	SessionID string            `json:"sessionId,omitempty"`
	Status    string            `json:"status,omitempty"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type contextKey string

const sessionContextKey contextKey = "forgeline/events/session"

// WithSession returns a derived context annotated with the given session id
// so event emitters can automatically scope payloads.
func WithSession(ctx context.Context, sessionID string) context.Context {
	if strings.TrimSpace(sessionID) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, sessionID)
}

// SessionFromContext extracts the session id associated with ctx.
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionContextKey).(string); ok {
		return v
	}
	return ""
}

func newEvent(eventType EventType, message string) SessionEvent {
	return SessionEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewInfo creates an info SessionEvent.
func NewInfo(message string) SessionEvent {
	return newEvent(EventInfo, message)
}

// NewWarn creates a warn SessionEvent.
func NewWarn(message string) SessionEvent {
	return newEvent(EventWarn, message)
}

// NewSuccess creates a success SessionEvent.
func NewSuccess(message string) SessionEvent {
	return newEvent(EventSuccess, message)
}

// NewError creates an error SessionEvent.
func NewError(message string) SessionEvent {
	return newEvent(EventError, message)
}

// NewStatus creates an event describing a session status transition.
func NewStatus(sessionID, status, summary string) SessionEvent {
	evt := newEvent(EventInfo, summary)
	evt.SessionID = sessionID
	evt.Status = status
	return evt
}
