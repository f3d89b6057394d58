package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/sign2me/internal/session"
	"github.com/ayusman/sign2me/internal/store"
	"github.com/ayusman/sign2me/pkg/logger"
)

// SettingsStore persists runtime settings.
type SettingsStore interface {
	All(ctx context.Context) (map[string]string, error)
	SetAll(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
}

// SettingsHandler serves /api/settings.
type SettingsHandler struct {
	store SettingsStore
	log   logger.Logger
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(s SettingsStore, log logger.Logger) *SettingsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SettingsHandler{store: s, log: log}
}

type settingsResponse struct {
	Settings map[string]string `json:"settings"`
}

// ServeHTTP routes:
//
//	GET, PUT /api/settings
//	DELETE   /api/settings/{key}
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/settings"), "/")

	switch {
	case key == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case key == "" && r.Method == http.MethodPut:
		h.update(w, r)
	case key != "" && r.Method == http.MethodDelete:
		h.delete(w, r, key)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *SettingsHandler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.All(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "list settings failed", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: all})
}

// update validates every pair before storing any of them.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decodeJSON(w, r, &values); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(values) == 0 {
		writeError(w, http.StatusBadRequest, "No settings given")
		return
	}

	for key, value := range values {
		if err := session.ValidateSetting(key, value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.store.SetAll(r.Context(), values); err != nil {
		h.log.Error(r.Context(), "save settings failed", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	h.log.Info(r.Context(), "settings updated", logger.Int("count", len(values)))

	h.list(w, r)
}

func (h *SettingsHandler) delete(w http.ResponseWriter, r *http.Request, key string) {
	if err := h.store.Delete(r.Context(), key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Setting not found")
			return
		}
		h.log.Error(r.Context(), "delete setting failed", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete setting")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
