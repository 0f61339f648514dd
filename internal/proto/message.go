package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin   = "join"
	InboundTypeLeave  = "leave"
	InboundTypeTyping = "typing"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	// Event names emitted to room members.
	EventMessageAdded   = "messageAdded"
	EventMessageRemoved = "messageRemoved"
	EventUserTyping     = "userTyping"
)

// JoinData subscribes the connection to a toy's discussion room. The same
// shape is used for leave.
type JoinData struct {
	ToyID string `json:"toyId"`
}

// TypingData relays a typing hint to the toy's room.
type TypingData struct {
	ToyID string `json:"toyId"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessagePayload is the persisted message carried by messageAdded.
type MessagePayload struct {
	ID        string    `json:"id"`
	ToyID     string    `json:"toyId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageRemovedPayload identifies the message pulled from a thread.
type MessageRemovedPayload struct {
	ToyID     string `json:"toyId"`
	MessageID string `json:"messageId"`
}

// TypingPayload names who is typing in a toy's room.
type TypingPayload struct {
	ToyID    string `json:"toyId"`
	Username string `json:"username"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
