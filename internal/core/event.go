package core

import "github.com/toyshophq/toyshop-server/internal/store"

// EventKind is a notification the discussion layer emits to clients.
type EventKind int

const (
	// EventMessageAdded announces a message persisted to a toy's thread.
	EventMessageAdded EventKind = iota
	// EventMessageRemoved announces a message pulled from a toy's thread.
	EventMessageRemoved
	// EventUserTyping relays a typing hint; it never touches storage.
	EventUserTyping
)

// Event describes one state change (or typing hint) for a toy's room.
// Message is set for EventMessageAdded, MessageID for EventMessageRemoved,
// Username for EventUserTyping.
type Event struct {
	Kind      EventKind
	ToyID     string
	Message   *store.Message
	MessageID string
	Username  string
}
