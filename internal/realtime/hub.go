package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rankboard/rankboard/pkg/logger"
	"github.com/rankboard/rankboard/pkg/metrics"
)

// Hub is the connection registry and broadcaster. It tracks every live
// session by its opaque id and fans outbound events to all of them, or to
// all but the originator. Delivery is fire-and-forget: no ordering or
// acknowledgment beyond what the transport provides.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Client
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Client)}
}

// Register adds a session on connect.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.sessions[c.ID] = c
	n := len(h.sessions)
	h.mu.Unlock()
	metrics.ConnectedSessions.Set(float64(n))
	logger.Infof("session %s connected (%d active)", c.ID, n)
}

// Unregister drops a session on disconnect. In-flight broadcasts to other
// sessions still complete.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	if !ok {
		return
	}
	c.close()
	metrics.ConnectedSessions.Set(float64(n))
	logger.Infof("session %s disconnected (%d active)", id, n)
}

// Count reports the number of registered sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// BroadcastAll delivers an event to every registered session, including the
// one that triggered it.
func (h *Hub) BroadcastAll(event string, data interface{}) {
	h.broadcast(event, data, "")
	metrics.Broadcasts.WithLabelValues("all").Inc()
}

// BroadcastExcept delivers an event to every session except senderID.
func (h *Hub) BroadcastExcept(senderID string, event string, data interface{}) {
	h.broadcast(event, data, senderID)
	metrics.Broadcasts.WithLabelValues("others").Inc()
}

func (h *Hub) broadcast(event string, data interface{}, skipID string) {
	b, err := json.Marshal(outEnvelope{Event: event, Data: data})
	if err != nil {
		logger.Errorf("marshal %s broadcast: %v", event, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.sessions {
		if id == skipID {
			continue
		}
		c.enqueue(b)
	}
}
