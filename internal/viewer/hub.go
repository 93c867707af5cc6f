package viewer

import (
	"sync"

	"github.com/JonMunkholm/ElementGrid/internal/core"
)

// Hub owns one Bridge per grid session.
type Hub struct {
	mu      sync.RWMutex
	bridges map[string]*Bridge
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{bridges: make(map[string]*Bridge)}
}

// Port returns the bridge for gridID as a core.ViewerPort, creating it on
// first use. Its signature matches core.ViewerFactory.
func (h *Hub) Port(gridID string) core.ViewerPort {
	return h.Bridge(gridID)
}

// Bridge returns the bridge for gridID, creating it on first use.
func (h *Hub) Bridge(gridID string) *Bridge {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.bridges[gridID]
	if !ok {
		b = NewBridge(gridID)
		h.bridges[gridID] = b
	}
	return b
}

// Lookup returns an existing bridge.
func (h *Hub) Lookup(gridID string) (*Bridge, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.bridges[gridID]
	return b, ok
}

// Remove closes and forgets the bridge for gridID.
func (h *Hub) Remove(gridID string) {
	h.mu.Lock()
	b, ok := h.bridges[gridID]
	delete(h.bridges, gridID)
	h.mu.Unlock()

	if ok {
		b.Close()
	}
}

// Len returns the number of bridges.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bridges)
}
