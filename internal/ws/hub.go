package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"chatroom-service/internal/models"
	"chatroom-service/internal/observability"
)

// Hub maps rooms to the sessions joined to them.
type Hub struct {
	rooms map[int]map[*Client]struct{}
	mu    sync.RWMutex
	log   *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms: make(map[int]map[*Client]struct{}),
		log:   log,
	}
}

// Join subscribes a client to a room. Joining twice is a no-op.
func (h *Hub) Join(roomID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
	c.rooms[roomID] = struct{}{}
}

// Leave unsubscribes a client from one room.
func (h *Hub) Leave(roomID int, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomID, c)
}

// Remove unsubscribes a client from every room and reports whether it had any.
func (h *Hub) Remove(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	had := len(c.rooms) > 0
	for roomID := range c.rooms {
		h.leaveLocked(roomID, c)
	}
	return had
}

func (h *Hub) leaveLocked(roomID int, c *Client) {
	delete(c.rooms, roomID)
	conns, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
}

// Broadcast queues the event on every client joined to the room, the
// originating session included, and returns how many accepted it. A client
// whose send buffer is full is dropped rather than waited for.
func (h *Hub) Broadcast(roomID int, event models.Event) int {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("broadcast encode failed", "room_id", roomID, "event", event.Event, "error", err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(payload) {
			delivered++
			continue
		}
		h.drop(c)
	}
	return delivered
}

func (h *Hub) drop(c *Client) {
	if !h.Remove(c) {
		return
	}
	c.close()
	observability.IncBroadcastDropped()
	observability.IncWSEvent(c.kind(), "ws_dropped")
	h.log.Warn("websocket client dropped", "conn_id", c.info.ConnID, "user_id", c.info.UserID)
}

// RoomSize returns the number of clients joined to a room.
func (h *Hub) RoomSize(roomID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
