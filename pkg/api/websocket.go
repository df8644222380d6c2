package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/bgtutor/pkg/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the router
	},
}

// WSMessage is a message from the client: an intent named by Type ("roll",
// "move", "confirm", ...), "snapshot" or "ping".
type WSMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`                // Request ID for correlating responses
	Payload json.RawMessage `json:"payload,omitempty"` // IntentRequest for "move"
}

// WSResponse is a message to the client: "snapshot" after every intent,
// "event" for every engine event, "error" and "pong".
type WSResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`      // Request ID
	Payload any    `json:"payload,omitempty"` // game.Snapshot or game.Event
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// wsClient is one connected socket. Only writePump writes to conn.
type wsClient struct {
	conn   *websocket.Conn
	sess   *Session
	log    *zap.Logger
	send   chan WSResponse
	quit   chan struct{} // closed when the reader stops
	closed chan struct{} // closed when the writer stops
}

// WebSocket carries intents in and snapshots and events out.
// GET /api/matches/{id}/ws
func (s *Server) WebSocket(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := sess.Engine.Subscribe()
	defer cancel()

	c := &wsClient{
		conn:   conn,
		sess:   sess,
		log:    s.log.With(zap.String("session", sess.ID)),
		send:   make(chan WSResponse, 256),
		quit:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go c.writePump(events)
	c.reply(WSResponse{Type: "snapshot", Payload: sess.Engine.Snapshot()})
	c.readPump(r.Context())
}

func (c *wsClient) writePump(events <-chan game.Event) {
	defer close(c.closed)
	defer c.conn.Close()
	for {
		select {
		case <-c.quit:
			return
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(WSResponse{Type: "event", Payload: ev}); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump(ctx context.Context) {
	defer close(c.quit)
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		c.handleMessage(ctx, msg)
	}
}

// reply queues a message unless the writer has stopped.
func (c *wsClient) reply(r WSResponse) {
	select {
	case c.send <- r:
	case <-c.closed:
	}
}

func (c *wsClient) handleMessage(ctx context.Context, msg WSMessage) {
	switch msg.Type {
	case "ping":
		c.reply(WSResponse{Type: "pong", ID: msg.ID})
		return
	case "snapshot":
		c.reply(WSResponse{Type: "snapshot", ID: msg.ID, Payload: c.sess.Engine.Snapshot()})
		return
	}

	var req IntentRequest
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			c.reply(WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "INVALID_JSON"})
			return
		}
	}
	if err := c.sess.Apply(ctx, msg.Type, req); err != nil {
		c.reply(WSResponse{Type: "error", ID: msg.ID, Error: err.Error(), Code: intentErrorCode(err)})
		return
	}
	c.reply(WSResponse{Type: "snapshot", ID: msg.ID, Payload: c.sess.Engine.Snapshot()})
}
