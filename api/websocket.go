package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seenimoa/indexdash/internal/dashboard"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 16,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; restrict in production
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// WSMessage is a message sent over the websocket. Clients send
// {"type":"rerun","data":Input} and receive {"type":"render","data":Panels}.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type wsIncoming struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WSHub tracks the open websocket connections.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is a single websocket connection bound to a dashboard session.
type WSClient struct {
	sess *dashboard.Session
	send chan WSMessage
	done chan struct{} // closed when the write pump exits
}

// enqueue queues msg unless the connection is already gone.
func (c *WSClient) enqueue(msg WSMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

// NewWSHub creates an empty hub.
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]struct{})}
}

// Register adds a client to the hub.
func (h *WSHub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send queue.
func (h *WSHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWebSocket upgrades the connection and reruns the dashboard for the
// caller's session on every "rerun" message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, cookie := s.lookupSession(r)
	var header http.Header
	if cookie != nil {
		header = http.Header{"Set-Cookie": {cookie.String()}}
	}

	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &WSClient{sess: sess, send: make(chan WSMessage, 16), done: make(chan struct{})}
	s.wsHub.Register(client)

	go s.wsWritePump(conn, client)
	go s.wsReadPump(conn, client)
}

// wsReadPump reads client messages and runs one dashboard cycle per rerun.
// Cycles of one connection run in order.
func (s *Server) wsReadPump(conn *websocket.Conn, client *WSClient) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.wsHub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Str("session", client.sess.ID).Msg("websocket read error")
			}
			return
		}

		var msg wsIncoming
		if err := json.Unmarshal(message, &msg); err != nil {
			client.enqueue(WSMessage{Type: "error", Data: "invalid message"})
			continue
		}

		switch msg.Type {
		case "rerun":
			var in dashboard.Input
			if len(msg.Data) > 0 {
				if err := json.Unmarshal(msg.Data, &in); err != nil {
					client.enqueue(WSMessage{Type: "error", Data: "invalid input"})
					continue
				}
			}
			client.enqueue(s.rerun(ctx, client.sess, in))
		case "ping":
			client.enqueue(WSMessage{Type: "pong"})
		default:
			client.enqueue(WSMessage{Type: "error", Data: "unknown message type " + msg.Type})
		}
	}
}

// rerun runs one cycle and renders its panels.
func (s *Server) rerun(ctx context.Context, sess *dashboard.Session, in dashboard.Input) WSMessage {
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	v := s.dash.Run(ctx, sess, in)
	panels, err := s.renderer.RenderPanels(v)
	if err != nil {
		s.log.Error().Err(err).Str("session", sess.ID).Msg("rendering panels")
		return WSMessage{Type: "error", Data: "failed to render dashboard"}
	}
	return WSMessage{Type: "render", Data: panels}
}

// wsWritePump writes queued messages and keeps the connection alive.
func (s *Server) wsWritePump(conn *websocket.Conn, client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(client.done)
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
