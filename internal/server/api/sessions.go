package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/sign2me/internal/feature"
	"github.com/ayusman/sign2me/internal/session"
	"github.com/ayusman/sign2me/pkg/logger"
)

// SessionHandler serves /api/sessions and its sub-resources.
type SessionHandler struct {
	manager *session.Manager
	log     logger.Logger
}

// NewSessionHandler creates a handler over the given session manager.
func NewSessionHandler(m *session.Manager, log logger.Logger) *SessionHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionHandler{manager: m, log: log}
}

type createSessionRequest struct {
	// Source names the pose source; empty means frames are posted to the session.
	Source string `json:"source"`
}

// SessionResponse is a session snapshot with its ID.
type SessionResponse struct {
	ID string `json:"id"`
	session.State
}

type listSessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// ServeHTTP routes:
//
//	GET, POST   /api/sessions
//	GET, DELETE /api/sessions/{id}
//	POST        /api/sessions/{id}/advance
//	POST        /api/sessions/{id}/frames
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: h.manager.IDs()})
		case http.MethodPost:
			h.create(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	id, action, _ := strings.Cut(path, "/")
	ctrl, err := h.manager.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, SessionResponse{ID: id, State: ctrl.Snapshot()})
	case action == "" && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	case action == "advance" && r.Method == http.MethodPost:
		h.advance(w, r, ctrl)
	case action == "frames" && r.Method == http.MethodPost:
		h.frame(w, r, ctrl)
	case action == "" || action == "advance" || action == "frames":
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// create handles POST /api/sessions.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ctrl, err := h.manager.Create(r.Context(), req.Source)
	if errors.Is(err, session.ErrUnknownSource) {
		writeError(w, http.StatusBadRequest, "Unknown source: "+req.Source)
		return
	}
	if err != nil {
		h.log.Error(r.Context(), "create session failed", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	w.Header().Set("Location", "/api/sessions/"+ctrl.ID())
	writeJSON(w, http.StatusCreated, SessionResponse{ID: ctrl.ID(), State: ctrl.Snapshot()})
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.manager.Delete(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.log.Warn(r.Context(), "session close reported an error", logger.String("session", id), logger.Err(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// advance handles POST /api/sessions/{id}/advance.
func (h *SessionHandler) advance(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	state, err := ctrl.Advance(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			writeError(w, http.StatusGone, "Session closed")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "Advance cancelled")
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: ctrl.ID(), State: state})
}

// frame handles POST /api/sessions/{id}/frames. Frames are queued, so the
// response only acknowledges receipt.
func (h *SessionHandler) frame(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	var f feature.Frame
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid frame")
		return
	}
	ctrl.HandleFrame(f)
	w.WriteHeader(http.StatusAccepted)
}
