package http

import (
	"encoding/json"

	"github.com/toyshophq/toyshop-server/internal/auth"
	"github.com/toyshophq/toyshop-server/internal/core"
	"github.com/toyshophq/toyshop-server/internal/proto"
)

// handleInbound routes one client frame to the hub or the discussion
// service. A non-nil return is a protocol error to echo back; the
// connection stays up either way.
func (h *WSHandler) handleInbound(client *core.Client, identity auth.Identity, inbound proto.Inbound) *proto.Error {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil || join.ToyID == "" {
			return &proto.Error{Code: "bad_request", Msg: "toyId is required"}
		}
		h.hub.Join(join.ToyID, client)
		return nil

	case proto.InboundTypeLeave:
		var leave proto.JoinData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil || leave.ToyID == "" {
			return &proto.Error{Code: "bad_request", Msg: "toyId is required"}
		}
		h.hub.Leave(leave.ToyID, client)
		return nil

	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil || typing.ToyID == "" {
			return &proto.Error{Code: "bad_request", Msg: "toyId is required"}
		}
		h.toys.Typing(typing.ToyID, identity, client)
		return nil

	default:
		return &proto.Error{Code: "invalid_message", Msg: "unknown message type"}
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessageAdded:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageAdded,
			Data: proto.MessagePayload{
				ID:        event.Message.ID,
				ToyID:     event.ToyID,
				UserID:    event.Message.UserID,
				Username:  event.Message.Username,
				Content:   event.Message.Content,
				CreatedAt: event.Message.CreatedAt,
			},
		}
	case core.EventMessageRemoved:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageRemoved,
			Data: proto.MessageRemovedPayload{
				ToyID:     event.ToyID,
				MessageID: event.MessageID,
			},
		}
	case core.EventUserTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserTyping,
			Data: proto.TypingPayload{
				ToyID:    event.ToyID,
				Username: event.Username,
			},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
