package ws

import (
	"encoding/json"
	"sync"

	"telegram_rewards/internal/logger"
)

// Hub tracks live connections per user. A user may have several tabs open.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

// unregister removes c and closes its send queue. Closing under the write
// lock keeps Push from sending on a closed channel.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	close(c.Send)
}

// Push queues ev for every connection of userID and returns how many took it.
// Slow clients with a full queue miss the frame.
func (h *Hub) Push(userID int64, ev Event) int {
	msg, err := json.Marshal(ev)
	if err != nil {
		logger.Error("ws: marshal event failed", "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients[userID] {
		select {
		case c.Send <- msg:
			delivered++
		default:
			logger.Warn("ws: send queue full, dropping frame", "user_id", userID)
		}
	}
	return delivered
}

// Connections counts every open socket across users.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Online reports how many connections userID has.
func (h *Hub) Online(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
