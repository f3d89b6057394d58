package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/sign2me/internal/feature"
	"github.com/ayusman/sign2me/internal/session"
	"github.com/ayusman/sign2me/pkg/logger"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message types exchanged on the session socket.
const (
	msgState   = "state"
	msgError   = "error"
	msgFrame   = "frame"
	msgAdvance = "advance"
)

// inbound is a client message.
type inbound struct {
	Type  string         `json:"type"`
	Frame *feature.Frame `json:"frame,omitempty"`
}

// outbound is a server message.
type outbound struct {
	Type  string         `json:"type"`
	State *session.State `json:"state,omitempty"`
	Error string         `json:"error,omitempty"`
}

// SessionSocket streams session state over a WebSocket at
// /api/sessions/{id}/ws and accepts frames and advance requests.
type SessionSocket struct {
	manager *session.Manager
	log     logger.Logger
}

// NewSessionSocket creates a WebSocket handler over the session manager.
func NewSessionSocket(m *session.Manager, log logger.Logger) *SessionSocket {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionSocket{manager: m, log: log}
}

// ServeHTTP looks up the session and upgrades the connection.
func (h *SessionSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/ws")
	ctrl, err := h.manager.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.Err(err))
		return
	}
	defer conn.Close()

	h.log.Debug(r.Context(), "websocket connected", logger.String("session", id))
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan outbound, 4)
	go h.read(ctx, cancel, conn, ctrl, out)
	h.write(ctx, conn, ctrl, out)
	h.log.Debug(r.Context(), "websocket disconnected", logger.String("session", id))
}

// write owns every write to conn until ctx ends or the session closes.
func (h *SessionSocket) write(ctx context.Context, conn *websocket.Conn, ctrl *session.Controller, out <-chan outbound) {
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	send := func(m outbound) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m) == nil
	}

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if !send(outbound{Type: msgState, State: &s}) {
				return
			}
		case m := <-out:
			if !send(m) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// read handles client messages and cancels ctx when the peer goes away.
func (h *SessionSocket) read(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, ctrl *session.Controller, out chan<- outbound) {
	defer cancel()

	conn.SetReadLimit(maxMessage)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	reply := func(m outbound) {
		select {
		case out <- m:
		case <-ctx.Done():
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug(ctx, "websocket read failed", logger.Err(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			reply(outbound{Type: msgError, Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case msgFrame:
			if msg.Frame == nil {
				reply(outbound{Type: msgError, Error: "frame message without frame"})
				continue
			}
			ctrl.HandleFrame(*msg.Frame)
		case msgAdvance:
			// The resulting state reaches the client through the subscription.
			if _, err := ctrl.Advance(ctx); err != nil {
				reply(outbound{Type: msgError, Error: err.Error()})
			}
		default:
			reply(outbound{Type: msgError, Error: "unknown message type " + msg.Type})
		}
	}
}
