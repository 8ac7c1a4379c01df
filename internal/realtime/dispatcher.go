package realtime

import (
	"context"
	"encoding/json"

	"github.com/rankboard/rankboard/pkg/logger"
	"github.com/rankboard/rankboard/pkg/metrics"
)

// HandlerFunc processes one inbound event for a session. A returned error is
// logged and dropped: the mutation is abandoned, no broadcast happens and the
// sender is not notified.
type HandlerFunc func(ctx context.Context, sess *Client, data json.RawMessage) error

// Dispatcher maps inbound event names to handlers. Unrecognized events are
// ignored without surfacing anything to the sender. Handlers run as
// independent goroutines: two events from the same session may be in flight
// at once, so handlers must not assume serialization.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Handle registers the handler for an event name. Last registration wins.
func (d *Dispatcher) Handle(event string, h HandlerFunc) {
	d.handlers[event] = h
}

// Dispatch routes one envelope to its handler.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Client, env Envelope) {
	h, ok := d.handlers[env.Event]
	if !ok {
		logger.Debugf("session %s sent unknown event %q, ignoring", sess.ID, env.Event)
		return
	}
	metrics.EventsReceived.WithLabelValues(env.Event).Inc()
	go func() {
		if err := h(ctx, sess, env.Data); err != nil {
			metrics.EventsFailed.WithLabelValues(env.Event).Inc()
			logger.Errorf("session %s event %s: %v", sess.ID, env.Event, err)
		}
	}()
}
