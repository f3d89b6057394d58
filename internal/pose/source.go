// Package pose delivers hand landmark frames to practice sessions. A Source
// hides the vision pipeline behind a subscribe/unsubscribe capability.
package pose

import (
	"sync"

	"github.com/ayusman/sign2me/internal/feature"
)

// Handler receives one frame per perception tick. It must not block.
type Handler func(feature.Frame)

// Source produces landmark frames.
type Source interface {
	// Subscribe registers h and returns a function that removes it.
	Subscribe(h Handler) (unsubscribe func())
}

// Hub fans frames out to subscribers. The zero value is ready to use and
// satisfies Source.
type Hub struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	next     int
}

// Subscribe registers fn and returns a function that removes it.
func (h *Hub) Subscribe(fn Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.handlers == nil {
		h.handlers = make(map[int]Handler)
	}
	id := h.next
	h.next++
	h.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers frame to every handler and returns how many received it.
func (h *Hub) Publish(frame feature.Frame) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, fn := range h.handlers {
		fn(frame)
	}
	return len(h.handlers)
}

// Subscribers returns the number of registered handlers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

// Feed is a Source fed by callers, such as a browser pushing frames over HTTP.
type Feed struct {
	Hub
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Push delivers frame to every subscriber and returns how many received it.
func (f *Feed) Push(frame feature.Frame) int {
	return f.Publish(frame)
}
