package toys

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/toyshophq/toyshop-server/internal/auth"
	"github.com/toyshophq/toyshop-server/internal/core"
	"github.com/toyshophq/toyshop-server/internal/store"
)

// ErrForbidden is returned when a caller tries to remove a message that
// is neither theirs nor removable by their role.
var ErrForbidden = errors.New("not allowed to remove this message")

// Service coordinates thread mutations between the catalog store and the
// real-time hub. A change is announced only after the store acknowledged
// it, so a client that joins a room and immediately re-reads the toy can
// never see a state older than a broadcast it already received.
type Service struct {
	store store.ToyStore
	hub   *core.Hub
	log   *zerolog.Logger
}

// New creates the discussion service.
func New(st store.ToyStore, hub *core.Hub, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// AddMessage appends a message to the toy's thread and fans the persisted
// result out to the toy's room. On a store failure nothing is broadcast
// and the failure is returned unchanged.
func (s *Service) AddMessage(ctx context.Context, toyID string, caller auth.Identity, content string) (*store.Message, error) {
	msg, err := s.store.AddToyMessage(ctx, toyID, caller.UserID, caller.Username, content)
	if err != nil {
		return nil, err
	}

	// The write is durable at this point; the broadcast is not gated on
	// the requester still being around to read the response.
	s.hub.Broadcast(toyID, &core.Event{
		Kind:    core.EventMessageAdded,
		ToyID:   toyID,
		Message: msg,
	})

	s.log.Debug().
		Str("toy_id", toyID).
		Str("message_id", msg.ID).
		Str("user_id", caller.UserID).
		Msg("message added")

	return msg, nil
}

// RemoveMessage pulls a message from the toy's thread. Only the message's
// author or an admin may remove it. On success the removal is announced
// to the toy's room; a concurrent double-remove yields one success and
// one ErrNotFound, so at most one broadcast.
func (s *Service) RemoveMessage(ctx context.Context, toyID, messageID string, caller auth.Identity) error {
	if !caller.IsAdmin {
		toy, err := s.store.GetToy(ctx, toyID)
		if err != nil {
			return err
		}
		author, ok := messageAuthor(toy, messageID)
		if !ok {
			return fmt.Errorf("message %s: %w", messageID, store.ErrNotFound)
		}
		if author != caller.UserID {
			return ErrForbidden
		}
	}

	// The $pull is the authoritative existence check; the author lookup
	// above may race a concurrent remove and that is fine.
	if err := s.store.RemoveToyMessage(ctx, toyID, messageID); err != nil {
		return err
	}

	s.hub.Broadcast(toyID, &core.Event{
		Kind:      core.EventMessageRemoved,
		ToyID:     toyID,
		MessageID: messageID,
	})

	s.log.Debug().
		Str("toy_id", toyID).
		Str("message_id", messageID).
		Str("user_id", caller.UserID).
		Msg("message removed")

	return nil
}

// Typing relays a typing hint to everyone in the toy's room except the
// typer. It never touches the store and never fails.
func (s *Service) Typing(toyID string, caller auth.Identity, origin *core.Client) {
	s.hub.BroadcastExcluding(toyID, &core.Event{
		Kind:     core.EventUserTyping,
		ToyID:    toyID,
		Username: caller.Username,
	}, origin)
}

func messageAuthor(toy *store.Toy, messageID string) (string, bool) {
	for i := range toy.Messages {
		if toy.Messages[i].ID == messageID {
			return toy.Messages[i].UserID, true
		}
	}
	return "", false
}
