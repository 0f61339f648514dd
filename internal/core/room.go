package core

import "sync"

// room groups the clients subscribed to one toy's discussion. Its mutex
// serializes membership changes and fan-outs for this room only; rooms
// never share a lock.
type room struct {
	id string

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func newRoom(id string) *room {
	return &room{
		id:      id,
		clients: make(map[*Client]struct{}),
	}
}

// add inserts a client. Returns false if it was already a member.
func (r *room) add(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// remove deletes a client. Reports whether it was a member and whether
// the room is now empty.
func (r *room) remove(c *Client) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c]; exists {
		delete(r.clients, c)
		removed = true
	}
	return removed, len(r.clients) == 0
}

func (r *room) isEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients) == 0
}

// broadcast delivers the event to every current member except the one
// given (nil = deliver to all). The mutex is held across the loop so
// sequential broadcasts to this room reach each member in issue order.
// Delivery per client is a non-blocking send: a slow consumer loses the
// event rather than stalling the rest of the room.
func (r *room) broadcast(ev *Event, except *Client) (delivered, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for client := range r.clients {
		if client == except {
			continue
		}
		select {
		case client.Events <- ev:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}
