package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rankboard/rankboard/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request, registers the session and pumps frames until
// the client goes away. Disconnects deregister silently; nothing is
// broadcast for them.
func ServeWS(hub *Hub, d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warnf("websocket upgrade: %v", err)
			return
		}
		client := NewClient(uuid.NewString(), conn)
		hub.Register(client)
		go client.writePump()
		readPump(hub, d, client)
	}
}

func readPump(hub *Hub, d *Dispatcher, client *Client) {
	defer hub.Unregister(client.ID)
	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			logger.Debugf("session %s read: %v", client.ID, err)
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warnf("session %s sent an undecodable frame, dropping: %v", client.ID, err)
			continue
		}
		d.Dispatch(context.Background(), client, env)
	}
}
