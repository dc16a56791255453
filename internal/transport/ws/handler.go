package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/geoguess/internal/api/apierr"
	"github.com/mcoot/geoguess/internal/dependencies/clock"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/services/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // The chat client is served from the provider's origin
	},
}

// Handler upgrades requests to websockets and runs their command loop
type Handler struct {
	hub         *Hub
	coordinator *game.Coordinator
	clock       clock.Clock
	logger      *slog.Logger
}

// NewHandler creates a new websocket handler
func NewHandler(hub *Hub, coordinator *game.Coordinator, clock clock.Clock, logger *slog.Logger) *Handler {
	return &Handler{
		hub:         hub,
		coordinator: coordinator,
		clock:       clock,
		logger:      logger,
	}
}

// ServeHTTP handles GET /api/v1/ws.
// With ?session= the socket attaches to an existing bound session; without
// it a fresh session is minted and unbound again when the socket closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	session := model.SessionHandle(r.URL.Query().Get("session"))
	ephemeral := session == ""

	var initial *model.Event
	if ephemeral {
		session = h.coordinator.NewHandle()
	} else {
		state, err := h.coordinator.RequestGameState(ctx, session)
		if err != nil {
			apierr.WriteError(w, err)
			return
		}
		initial = &state
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	conn := NewConnection(session)
	h.hub.Register(conn)
	if initial != nil {
		h.hub.Reply(conn, *initial)
	}

	go h.writePump(wsConn, conn)
	go h.readPump(ctx, wsConn, conn, ephemeral)
}

func (h *Handler) readPump(ctx context.Context, wsConn *websocket.Conn, conn *Connection, ephemeral bool) {
	defer func() {
		h.hub.Unregister(conn)
		_ = wsConn.Close()
		if ephemeral {
			if err := h.coordinator.Disconnect(ctx, conn.Session); err != nil {
				h.logger.Error("failed to unbind session",
					slog.String("session", string(conn.Session)),
					slog.Any("error", err))
			}
		}
	}()

	wsConn.SetReadLimit(maxMessageSize)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket closed unexpectedly",
					slog.String("connection_id", conn.ID),
					slog.Any("error", err))
			}
			return
		}

		h.handleMessage(ctx, conn, data)
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *Connection, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.replyError(conn, &errInvalidCommand{"invalid message"})
		return
	}

	reply, err := dispatch(ctx, h.coordinator, conn.Session, msg)
	if err != nil {
		h.replyError(conn, err)
		return
	}
	h.hub.Reply(conn, reply)

	// A fresh sign-in is followed by the viewer's game state
	if reply.Type == model.EventAuthenticationResult {
		state, err := h.coordinator.RequestGameState(ctx, conn.Session)
		if err != nil {
			h.replyError(conn, err)
			return
		}
		h.hub.Reply(conn, state)
	}
}

func (h *Handler) replyError(conn *Connection, err error) {
	var payload model.ErrorPayload
	if isInvalidCommand(err) {
		payload = model.ErrorPayload{Code: apierr.CodeInvalidRequest, Message: err.Error()}
	} else {
		described := apierr.Describe(err)
		payload = model.ErrorPayload{Code: described.Code, Message: described.Message}
		if described.Code == apierr.CodeInternalError && !errors.Is(err, context.Canceled) {
			h.logger.Error("command failed",
				slog.String("session", string(conn.Session)),
				slog.Any("error", err))
		}
	}

	h.hub.Reply(conn, model.Event{
		Type:      model.EventErrorMessage,
		Timestamp: h.clock.Now(),
		Payload:   payload,
	})
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send():
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
