package ws

import (
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of connection counters for the
// informational /ws/stats surface.
type Stats struct {
	ActiveConnections int       `json:"active_connections"`
	TotalSessions     int       `json:"total_sessions"`
	PeakConnections   int       `json:"peak_connections"`
	LastUpdated       time.Time `json:"last_updated"`
}

// Hub tracks live conversational connections. It only keeps counters; the
// per-user conversation state lives in the orchestrator.
type Hub struct {
	mu          sync.Mutex
	active      map[string]int
	total       int
	peak        int
	lastUpdated time.Time
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]int)}
}

// register records a new connection for userID under its session id.
func (h *Hub) register(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active[sessionID]++
	h.total++
	if n := h.count(); n > h.peak {
		h.peak = n
	}
	h.lastUpdated = time.Now().UTC()
}

// unregister drops a connection.
func (h *Hub) unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active[sessionID] <= 1 {
		delete(h.active, sessionID)
	} else {
		h.active[sessionID]--
	}
	h.lastUpdated = time.Now().UTC()
}

func (h *Hub) count() int {
	n := 0
	for _, c := range h.active {
		n += c
	}
	return n
}

// Snapshot returns the current connection counters.
func (h *Hub) Snapshot() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		ActiveConnections: h.count(),
		TotalSessions:     h.total,
		PeakConnections:   h.peak,
		LastUpdated:       h.lastUpdated,
	}
}
