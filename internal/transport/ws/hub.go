// Package ws carries commands and events between clients and the game
// coordinator over websockets.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/geoguess/internal/api/response"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/services/game"
)

// Connection is one websocket attached to a session
type Connection struct {
	ID          string
	Session     model.SessionHandle
	send        chan []byte
	connectedAt time.Time
}

// NewConnection creates a connection for session with a buffered outbox
func NewConnection(session model.SessionHandle) *Connection {
	return &Connection{
		ID:          uuid.NewString(),
		Session:     session,
		send:        make(chan []byte, 256),
		connectedAt: time.Now(),
	}
}

// Send returns the connection's outbound message channel
func (c *Connection) Send() <-chan []byte {
	return c.send
}

// Hub tracks live connections by session and fans events out to them.
// A session may have several connections (several tabs or devices).
type Hub struct {
	conns  map[model.SessionHandle]map[*Connection]bool
	mu     sync.RWMutex
	logger *slog.Logger
	closed bool
}

// Ensure Hub can be handed to the coordinator
var _ game.Publisher = (*Hub)(nil)

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[model.SessionHandle]map[*Connection]bool),
		logger: logger,
	}
}

// Register adds a connection to the hub
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(conn.send)
		return
	}
	if h.conns[conn.Session] == nil {
		h.conns[conn.Session] = make(map[*Connection]bool)
	}
	h.conns[conn.Session][conn] = true
	total := h.countLocked()
	h.mu.Unlock()

	h.logger.Info("ws connection registered",
		slog.String("connection_id", conn.ID),
		slog.String("session", string(conn.Session)),
		slog.Int("total_connections", total))
}

// Unregister removes a connection and closes its outbox
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	sessionConns, ok := h.conns[conn.Session]
	if !ok || !sessionConns[conn] {
		h.mu.Unlock()
		return
	}
	delete(sessionConns, conn)
	if len(sessionConns) == 0 {
		delete(h.conns, conn.Session)
	}
	close(conn.send)
	total := h.countLocked()
	h.mu.Unlock()

	h.logger.Info("ws connection unregistered",
		slog.String("connection_id", conn.ID),
		slog.String("session", string(conn.Session)),
		slog.Duration("connection_duration", time.Since(conn.connectedAt)),
		slog.Int("total_connections", total))
}

// Publish sends event to every connection of session. Slow connections
// whose outbox is full miss the event rather than blocking the game.
func (h *Hub) Publish(session model.SessionHandle, event model.Event) {
	message, err := json.Marshal(response.EventFromModel(event))
	if err != nil {
		h.logger.Error("failed to encode event",
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.conns[session] {
		h.deliver(conn, message)
	}
}

// Reply sends event to a single connection
func (h *Hub) Reply(conn *Connection, event model.Event) {
	message, err := json.Marshal(response.EventFromModel(event))
	if err != nil {
		h.logger.Error("failed to encode event",
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.conns[conn.Session][conn] {
		h.deliver(conn, message)
	}
}

// deliver must be called with h.mu held
func (h *Hub) deliver(conn *Connection, message []byte) {
	select {
	case conn.send <- message:
	default:
		h.logger.Warn("ws message dropped - client buffer full",
			slog.String("connection_id", conn.ID),
			slog.String("session", string(conn.Session)))
	}
}

// Close disconnects every connection
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := h.countLocked()
	for session, sessionConns := range h.conns {
		for conn := range sessionConns {
			close(conn.send)
		}
		delete(h.conns, session)
	}
	h.closed = true
	h.logger.Info("ws hub stopped", slog.Int("disconnected_clients", count))
}

// ConnectionCount returns the number of live connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

func (h *Hub) countLocked() int {
	total := 0
	for _, sessionConns := range h.conns {
		total += len(sessionConns)
	}
	return total
}
