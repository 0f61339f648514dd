package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Hub is the thread directory and fan-out dispatcher: it maps toy ids to
// rooms of live connections and delivers events to current members.
// Rooms exist only while they have members; an empty room is removed, so
// it is indistinguishable from one that never existed. All state is
// in-process and none of the operations touch I/O.
//
// Lock order is always hub.mu before room.mu. The hub mutex is held in
// read mode for the duration of a room operation, so operations on
// different rooms run concurrently; the write lock is taken only to
// create or retire a room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
	log   *zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		rooms: make(map[string]*room),
		log:   logger,
	}
}

// Join subscribes the client to the toy's room, creating the room on
// first join. Joining twice is the same as joining once.
func (h *Hub) Join(toyID string, c *Client) {
	h.mu.RLock()
	if r, ok := h.rooms[toyID]; ok {
		added := r.add(c)
		h.mu.RUnlock()
		if added {
			c.trackJoin(toyID)
			h.log.Debug().Str("toy_id", toyID).Str("client_id", c.ID).Msg("client joined room")
		}
		return
	}
	h.mu.RUnlock()

	h.mu.Lock()
	r, ok := h.rooms[toyID]
	if !ok {
		r = newRoom(toyID)
		h.rooms[toyID] = r
	}
	added := r.add(c)
	h.mu.Unlock()

	if added {
		c.trackJoin(toyID)
		h.log.Debug().Str("toy_id", toyID).Str("client_id", c.ID).Msg("client joined room")
	}
}

// Leave unsubscribes the client from the toy's room. Leaving a room the
// client never joined (or one that does not exist) is a no-op.
func (h *Hub) Leave(toyID string, c *Client) {
	h.mu.RLock()
	r, ok := h.rooms[toyID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	removed, empty := r.remove(c)
	h.mu.RUnlock()

	if removed {
		c.trackLeave(toyID)
		h.log.Debug().Str("toy_id", toyID).Str("client_id", c.ID).Msg("client left room")
	}
	if empty {
		h.retireIfEmpty(toyID, r)
	}
}

// retireIfEmpty drops the room from the directory unless someone joined
// again between the emptiness observation and the write lock.
func (h *Hub) retireIfEmpty(toyID string, r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.rooms[toyID]; ok && current == r && r.isEmpty() {
		delete(h.rooms, toyID)
	}
}

// Disconnect removes the client from every room it joined. The transport
// calls this exactly once when the connection terminates; it is safe even
// when the client never joined anything.
func (h *Hub) Disconnect(c *Client) {
	for _, toyID := range c.joinedRooms() {
		h.Leave(toyID, c)
	}
}

// Broadcast delivers the event to every connection currently in the
// toy's room. Delivery is best effort per connection; a failed delivery
// never surfaces to the caller.
func (h *Hub) Broadcast(toyID string, ev *Event) {
	h.BroadcastExcluding(toyID, ev, nil)
}

// BroadcastExcluding is Broadcast minus one connection, used so a sender
// does not hear an echo of its own directly-relayed event.
func (h *Hub) BroadcastExcluding(toyID string, ev *Event, origin *Client) {
	h.mu.RLock()
	r, ok := h.rooms[toyID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	delivered, dropped := r.broadcast(ev, origin)
	h.mu.RUnlock()

	if dropped > 0 {
		h.log.Warn().
			Str("toy_id", toyID).
			Int("delivered", delivered).
			Int("dropped", dropped).
			Msg("dropped events for slow consumers")
	}
}

// RoomSize reports the current member count of a room, zero when the room
// does not exist.
func (h *Hub) RoomSize(toyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[toyID]
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
