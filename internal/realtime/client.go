package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/defi-dashboard/internal/logging"
	"github.com/defi-dashboard/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The HTTP API is CORS-open; the websocket endpoint matches
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is the only inbound message shape: joining an address room
type clientMessage struct {
	Action  string `json:"action"`
	Address string `json:"address"`
}

// Client is one websocket connection. A client subscribes to at most one
// address room at a time; re-joining moves it.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string

	closeOnce sync.Once
}

// ServeWS upgrades an HTTP request to a websocket connection and registers it
// with the hub.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &Client{
		id:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 16),
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump consumes join messages until the connection drops
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Action == "join" && types.ValidAddress(msg.Address) {
			c.hub.join <- joinRequest{client: c, room: msg.Address}
		}
	}
}

// writePump pushes hub messages and keepalive pings to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeSend closes the outbound channel exactly once
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
