package core

import "sync"

// Client is one live connection as seen by the discussion layer. A client
// carries the identity resolved at upgrade time and an outbound event
// channel drained by the transport's write loop.
type Client struct {
	ID       string
	UserID   string
	Username string
	Events   chan *Event

	mu    sync.Mutex
	rooms map[string]struct{}
}

// eventBuffer is the outbound channel depth per connection. A client that
// falls further behind than this starts losing events (see room.broadcast).
const eventBuffer = 32

// NewClient constructs a client with an initialized event channel.
func NewClient(id, userID, username string) *Client {
	if username == "" {
		username = id
	}
	return &Client{
		ID:       id,
		UserID:   userID,
		Username: username,
		Events:   make(chan *Event, eventBuffer),
		rooms:    make(map[string]struct{}),
	}
}

func (c *Client) trackJoin(toyID string) {
	c.mu.Lock()
	c.rooms[toyID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) trackLeave(toyID string) {
	c.mu.Lock()
	delete(c.rooms, toyID)
	c.mu.Unlock()
}

// joinedRooms snapshots the rooms this client currently belongs to.
func (c *Client) joinedRooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	return ids
}
