package network

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewers are anonymous and may be served from any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// VisitorMessage is an incoming command from a viewer, e.g. {"type":"mock"}.
type VisitorMessage struct {
	Type string `json:"type"`
}

// Client is one WebSocket viewer.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn, remote string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.opts.ClientSendBuffer),
		remote: remote,
	}
}

// ServeWS upgrades the request and starts the client's pumps.
// GET /ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.stats.RecordWSError()
		h.logger.Warn("WebSocket upgrade failed: " + err.Error())
		return
	}

	client := NewClient(h, conn, remoteKey(r))
	if !client.Register() {
		conn.Close()
		return
	}

	// Greet the new viewer with the current state.
	s := h.engine.Snapshot()
	client.reply(Message{Type: MsgTypeState, Timestamp: s.Timestamp.Unix(), Payload: s})

	go client.WritePump()
	go client.ReadPump(r.Context())
}

// Register adds the client to the hub. It reports false once the hub has stopped.
func (c *Client) Register() bool {
	select {
	case c.hub.register <- c:
		return true
	case <-c.hub.done:
		return false
	}
}

// ReadPump pumps messages from the websocket connection to the engine.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.stats.RecordWSError()
				c.hub.logger.Warn("WebSocket read error: " + err.Error())
			}
			break
		}
		c.hub.stats.RecordWSMessage(true)

		var msg VisitorMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.logger.Warn("Failed to parse VisitorMessage from WebSocket. err: " + err.Error())
			c.replyError("invalid message")
			continue
		}

		c.handleVisitorMessage(ctx, msg)
	}
}

func (c *Client) handleVisitorMessage(ctx context.Context, msg VisitorMessage) {
	if msg.Type == "state" {
		s := c.hub.engine.Snapshot()
		c.reply(Message{Type: MsgTypeState, Timestamp: s.Timestamp.Unix(), Payload: s})
		return
	}

	if c.hub.limiter != nil && !c.hub.limiter.Allow(c.remote) {
		c.hub.stats.RecordRateLimited()
		c.hub.logger.Warn("Rate limit exceeded for WebSocket visitor " + c.remote)
		c.replyError("rate limit exceeded")
		return
	}

	// The reflection must outlive this connection's request context.
	out, err := c.hub.engine.Perform(context.WithoutCancel(ctx), msg.Type)
	switch {
	case errors.Is(err, engine.ErrUnknownAction):
		c.replyError("unknown action: " + msg.Type)
		return
	case err != nil:
		c.replyError(err.Error())
		return
	}
	c.reply(Message{Type: MsgTypeFeedback, Timestamp: time.Now().Unix(), Payload: out})
}

// reply queues a message for this client only. The hub delivers it, since
// only the hub may write to or close the send queue.
func (c *Client) reply(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("Failed to serialize reply: " + err.Error())
		return
	}
	select {
	case c.hub.direct <- directMessage{client: c, payload: payload}:
	case <-c.hub.done:
	}
}

func (c *Client) replyError(text string) {
	c.reply(Message{Type: MsgTypeError, Timestamp: time.Now().Unix(), Payload: map[string]string{"error": text}})
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.stats.RecordWSError()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// remoteKey identifies a visitor for rate limiting.
func remoteKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
