package api

import (
	"net/http"

	"github.com/ayusman/sign2me/internal/sequencer"
	"github.com/ayusman/sign2me/internal/session"
)

// LettersHandler serves GET /api/letters.
type LettersHandler struct {
	manager *session.Manager
}

// NewLettersHandler creates a letters handler.
func NewLettersHandler(m *session.Manager) *LettersHandler {
	return &LettersHandler{manager: m}
}

type lettersResponse struct {
	Letters []string `json:"letters"`
	// Excluded lists letters that need motion and are never practiced.
	Excluded string `json:"excluded"`
}

func (h *LettersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, lettersResponse{
		Letters:  h.manager.Alphabet(r.Context()),
		Excluded: sequencer.MotionLetters,
	})
}
