package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
	"github.com/FocuswithJustin/xrefview/core/xref"
	"github.com/FocuswithJustin/xrefview/internal/logging"
	"github.com/FocuswithJustin/xrefview/internal/viewer"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Websocket message types.
const (
	MessageQuery          = "query"
	MessageError          = "error"
	MessageCrossRefLoaded = "crossref_loaded"
)

// QueryRequest is what a client sends to look up one line.
type QueryRequest struct {
	Side string `json:"side"`
	Line int    `json:"line"`
}

// QueryMessage is sent to websocket clients: a reply to a QueryRequest, an
// error for a bad request, or a broadcast after the description changed.
type QueryMessage struct {
	Type      string         `json:"type"`
	Result    *QueryResponse `json:"result,omitempty"`
	Status    *viewer.Status `json:"status,omitempty"`
	Error     *APIError      `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Client represents a WebSocket client connection.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type reply struct {
	client *Client
	data   []byte
}

// Hub maintains active WebSocket connections. Only Run sends on or closes
// a client's send channel.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	replies    chan reply
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		replies:    make(chan reply, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run handles registration, replies and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_connected", count, "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_disconnected", count, "client_id", client.id)

		case r := <-h.replies:
			h.mu.Lock()
			if _, ok := h.clients[r.client]; ok {
				h.deliver(r.client, r.data)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				h.deliver(client, message)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// deliver queues data for client, dropping a client that cannot keep up.
// Callers hold h.mu.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
		logging.WebSocketEvent("client_dropped", len(h.clients), "client_id", client.id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to all connected clients.
func (h *Hub) Broadcast(msg QueryMessage) {
	data, err := encodeMessage(msg)
	if err != nil {
		logging.Error("failed to marshal websocket message", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logging.Warn("broadcast channel full, dropping message")
	}
}

func (h *Hub) sendReply(c *Client, msg QueryMessage) {
	data, err := encodeMessage(msg)
	if err != nil {
		logging.Error("failed to marshal websocket message", "error", err)
		return
	}
	select {
	case h.replies <- reply{client: c, data: data}:
	case <-h.done:
	}
}

func encodeMessage(msg QueryMessage) ([]byte, error) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}

// readPump answers query requests until the connection closes.
func (c *Client) readPump(s *Server) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(s.cfg.maxMessageSize())
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("websocket unexpected close", "client_id", c.id, "error", err)
			}
			return
		}
		c.hub.sendReply(c, s.answer(data))
	}
}

// answer turns one raw request into its reply.
func (s *Server) answer(data []byte) QueryMessage {
	var req QueryRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errorMessage(xerrors.Wrapf(xerrors.ErrInvalidInput, "malformed query: %v", err))
	}
	side, err := xref.ParseSide(req.Side)
	if err != nil {
		return errorMessage(err)
	}
	resp := s.query(side, req.Line)
	return QueryMessage{Type: MessageQuery, Result: &resp}
}

func errorMessage(err error) QueryMessage {
	_, code := statusForCode(xerrors.Classify(err))
	return QueryMessage{
		Type:  MessageError,
		Error: &APIError{Code: code, Message: err.Error()},
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// handleWebSocket upgrades the connection and serves queries on it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(s)
}
