package events

import (
	"context"
	"encoding/json"
	"log"
)

// Emit is the process-wide event sink. It defaults to a log emitter; hosts
// that push to a viewer install their own sink via SetCustomEmitter.
var Emit = func(ctx context.Context, name string, evt SessionEvent) {
	logEvent(name, evt)
}

// SetCustomEmitter replaces the event sink. Passing nil discards all events.
func SetCustomEmitter(f func(ctx context.Context, name string, evt SessionEvent)) {
	if f == nil {
		Emit = func(context.Context, string, SessionEvent) {}
		return
	}
	Emit = func(ctx context.Context, name string, evt SessionEvent) {
		if evt.SessionID == "" {
			if session := SessionFromContext(ctx); session != "" {
				evt.SessionID = session
			}
		}
		f(ctx, name, evt)
	}
}

func logEvent(name string, evt SessionEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("events: failed to marshal event: %v", err)
		return
	}
	log.Printf("%s %s", name, data)
}
