package server

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/sign2me/internal/feature"
	"github.com/ayusman/sign2me/internal/pose"
)

// FrameHandler publishes posted frames to every session on the shared feed.
type FrameHandler struct {
	feed *pose.Feed
}

// NewFrameHandler creates a handler for POST /api/frames.
func NewFrameHandler(feed *pose.Feed) *FrameHandler {
	return &FrameHandler{feed: feed}
}

type frameResponse struct {
	Delivered int `json:"delivered"`
}

func (h *FrameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var f feature.Frame
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid frame"})
		return
	}
	writeJSON(w, http.StatusAccepted, frameResponse{Delivered: h.feed.Push(f)})
}
