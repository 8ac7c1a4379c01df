package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rankboard/rankboard/pkg/logger"
)

// Envelope is the wire format in both directions: a named event plus its
// payload. Inbound payloads stay raw until the matched handler decodes them.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

const sendQueueSize = 64

// Client is one connected session: the websocket, its transport-assigned
// identity and a bounded outbound queue. The send channel is never closed by
// broadcasters; done signals the write pump to stop instead.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// Send marshals one event for this session only (e.g. the initial snapshot).
func (c *Client) Send(event string, data interface{}) {
	b, err := json.Marshal(outEnvelope{Event: event, Data: data})
	if err != nil {
		logger.Errorf("marshal %s event: %v", event, err)
		return
	}
	c.enqueue(b)
}

// enqueue hands a pre-marshaled frame to the write pump. A session whose
// queue is full is skipped rather than allowed to stall the caller.
func (c *Client) enqueue(b []byte) {
	select {
	case c.send <- b:
	case <-c.done:
	default:
		logger.Warnf("session %s send queue full, dropping frame", c.ID)
	}
}

// close signals the pumps to stop (idempotent).
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump serializes all writes to the websocket; gorilla connections do
// not allow concurrent writers.
func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case b := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				logger.Debugf("session %s write: %v", c.ID, err)
				return
			}
		case <-c.done:
			return
		}
	}
}
