package core

import (
	"testing"

	"github.com/toyshophq/toyshop-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	select {
	case ev := <-ch:
		if ev == nil {
			t.Fatalf("received nil event")
		}
		if ev.Kind != kind {
			t.Fatalf("expected event kind %v, got %v", kind, ev.Kind)
		}
		return ev
	default:
		t.Fatalf("expected event kind %v, channel empty", kind)
	}
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got %+v", ev)
	default:
	}
}

func TestHubJoinBroadcastAndLeave(t *testing.T) {
	hub := NewHub(nil)

	alice := NewClient("a", "u1", "alice")
	bob := NewClient("b", "u2", "bob")

	hub.Join("t1", alice)
	hub.Join("t1", bob)

	msg := &store.Message{ID: "m1", UserID: "u1", Username: "alice", Content: "hi"}
	hub.Broadcast("t1", &Event{Kind: EventMessageAdded, ToyID: "t1", Message: msg})

	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventMessageAdded)
		if ev.Message.ID != "m1" || ev.Message.Content != "hi" {
			t.Fatalf("unexpected message payload: %+v", ev.Message)
		}
	}

	hub.Leave("t1", alice)
	hub.Broadcast("t1", &Event{Kind: EventMessageRemoved, ToyID: "t1", MessageID: "m1"})

	mustNoEvent(t, alice.Events)
	ev := mustEvent(t, bob.Events, EventMessageRemoved)
	if ev.MessageID != "m1" {
		t.Fatalf("unexpected removed id: %s", ev.MessageID)
	}
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := NewHub(nil)

	alice := NewClient("a", "u1", "alice")
	hub.Join("t1", alice)
	hub.Join("t1", alice)

	if size := hub.RoomSize("t1"); size != 1 {
		t.Fatalf("expected room size 1 after double join, got %d", size)
	}

	hub.Broadcast("t1", &Event{Kind: EventUserTyping, ToyID: "t1", Username: "bob"})

	mustEvent(t, alice.Events, EventUserTyping)
	mustNoEvent(t, alice.Events) // exactly one delivery
}

func TestHubBroadcastScopedToRoom(t *testing.T) {
	hub := NewHub(nil)

	alice := NewClient("a", "u1", "alice")
	bob := NewClient("b", "u2", "bob")

	hub.Join("t1", alice)
	hub.Join("t2", bob)

	hub.Broadcast("t1", &Event{Kind: EventUserTyping, ToyID: "t1", Username: "alice"})

	mustEvent(t, alice.Events, EventUserTyping)
	mustNoEvent(t, bob.Events)
}

func TestHubEventsBeforeJoinNotDelivered(t *testing.T) {
	hub := NewHub(nil)

	alice := NewClient("a", "u1", "alice")
	bob := NewClient("b", "u2", "bob")
	hub.Join("t1", alice)

	hub.Broadcast("t1", &Event{Kind: EventMessageRemoved, ToyID: "t1", MessageID: "m0"})
	hub.Join("t1", bob)
	hub.Broadcast("t1", &Event{Kind: EventMessageRemoved, ToyID: "t1", MessageID: "m1"})

	ev := mustEvent(t, bob.Events, EventMessageRemoved)
	if ev.MessageID != "m1" {
		t.Fatalf("late joiner saw pre-join event: %+v", ev)
	}
	mustNoEvent(t, bob.Events)
}

func TestHubBroadcastExcludingSkipsOrigin(t *testing.T) {
	hub := NewHub(nil)

	alice := NewClient("a", "u1", "alice")
	bob := NewClient("b", "u2", "bob")
	hub.Join("t1", alice)
	hub.Join("t1", bob)

	hub.BroadcastExcluding("t1", &Event{Kind: EventUserTyping, ToyID: "t1", Username: "alice"}, alice)

	mustNoEvent(t, alice.Events)
	ev := mustEvent(t, bob.Events, EventUserTyping)
	if ev.Username != "alice" {
		t.Fatalf("unexpected typing payload: %+v", ev)
	}
}

func TestHubLeaveUnknownRoomIsNoOp(t *testing.T) {
	hub := NewHub(nil)

	alice := NewClient("a", "u1", "alice")
	hub.Leave("ghost", alice)

	hub.Join("t1", alice)
	hub.Leave("t2", alice) // member of t1 only

	hub.Broadcast("t1", &Event{Kind: EventUserTyping, ToyID: "t1", Username: "bob"})
	mustEvent(t, alice.Events, EventUserTyping)
}

func TestHubDisconnectRemovesFromAllRooms(t *testing.T) {
	hub := NewHub(nil)

	alice := NewClient("a", "u1", "alice")
	bob := NewClient("b", "u2", "bob")

	hub.Join("t1", alice)
	hub.Join("t2", alice)
	hub.Join("t2", bob)

	hub.Disconnect(alice)

	hub.Broadcast("t1", &Event{Kind: EventUserTyping, ToyID: "t1", Username: "x"})
	hub.Broadcast("t2", &Event{Kind: EventUserTyping, ToyID: "t2", Username: "x"})

	mustNoEvent(t, alice.Events)
	mustEvent(t, bob.Events, EventUserTyping)

	// t1 lost its last member and must be gone from the directory.
	if size := hub.RoomSize("t1"); size != 0 {
		t.Fatalf("expected empty t1 after disconnect, got size %d", size)
	}
}

func TestHubDisconnectWithoutJoinsIsSafe(t *testing.T) {
	hub := NewHub(nil)
	hub.Disconnect(NewClient("a", "u1", "alice"))
}

func TestHubRoomOrderingPreserved(t *testing.T) {
	hub := NewHub(nil)

	alice := NewClient("a", "u1", "alice")
	hub.Join("t1", alice)

	ids := []string{"m1", "m2", "m3", "m4"}
	for _, id := range ids {
		hub.Broadcast("t1", &Event{Kind: EventMessageRemoved, ToyID: "t1", MessageID: id})
	}

	for _, want := range ids {
		ev := mustEvent(t, alice.Events, EventMessageRemoved)
		if ev.MessageID != want {
			t.Fatalf("events out of order: expected %s, got %s", want, ev.MessageID)
		}
	}
}

func TestHubSlowConsumerDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)

	slow := NewClient("s", "u1", "slow")
	fast := NewClient("f", "u2", "fast")
	hub.Join("t1", slow)
	hub.Join("t1", fast)

	// Overfill the slow consumer's buffer; fast one is drained as we go.
	for i := 0; i < eventBuffer*2; i++ {
		hub.Broadcast("t1", &Event{Kind: EventUserTyping, ToyID: "t1", Username: "x"})
		mustEvent(t, fast.Events, EventUserTyping)
	}

	if got := len(slow.Events); got != eventBuffer {
		t.Fatalf("expected slow consumer buffer full at %d, got %d", eventBuffer, got)
	}
}
