package toys

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyshophq/toyshop-server/internal/auth"
	"github.com/toyshophq/toyshop-server/internal/core"
	"github.com/toyshophq/toyshop-server/internal/store"
)

// fakeToyStore emulates the document store's atomic list operations in
// memory: append and pull-by-id, with the same not-found reporting.
type fakeToyStore struct {
	toys    map[string]*store.Toy
	nextMsg int
	failAdd error // forced AddToyMessage failure
}

func newFakeToyStore(toyIDs ...string) *fakeToyStore {
	f := &fakeToyStore{toys: make(map[string]*store.Toy)}
	for _, id := range toyIDs {
		f.toys[id] = &store.Toy{ID: id, Name: "toy " + id}
	}
	return f
}

func (f *fakeToyStore) QueryToys(context.Context, store.ToyFilter, string, int, int) (*store.ToyPage, error) {
	panic("not used in these tests")
}

func (f *fakeToyStore) GetToy(_ context.Context, toyID string) (*store.Toy, error) {
	toy, ok := f.toys[toyID]
	if !ok {
		return nil, fmt.Errorf("toy %s: %w", toyID, store.ErrNotFound)
	}
	cp := *toy
	cp.Messages = append([]store.Message(nil), toy.Messages...)
	return &cp, nil
}

func (f *fakeToyStore) AddToy(context.Context, *store.Toy) (*store.Toy, error) {
	panic("not used in these tests")
}

func (f *fakeToyStore) UpdateToy(context.Context, *store.Toy) (*store.Toy, error) {
	panic("not used in these tests")
}

func (f *fakeToyStore) RemoveToy(context.Context, string) error {
	panic("not used in these tests")
}

func (f *fakeToyStore) AddToyMessage(_ context.Context, toyID, userID, username, content string) (*store.Message, error) {
	if f.failAdd != nil {
		return nil, f.failAdd
	}
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", store.ErrInvalidInput)
	}
	toy, ok := f.toys[toyID]
	if !ok {
		return nil, fmt.Errorf("toy %s: %w", toyID, store.ErrNotFound)
	}
	f.nextMsg++
	msg := store.Message{
		ID:       fmt.Sprintf("m%d", f.nextMsg),
		UserID:   userID,
		Username: username,
		Content:  content,
	}
	toy.Messages = append(toy.Messages, msg)
	return &msg, nil
}

func (f *fakeToyStore) RemoveToyMessage(_ context.Context, toyID, messageID string) error {
	toy, ok := f.toys[toyID]
	if !ok {
		return fmt.Errorf("toy %s: %w", toyID, store.ErrNotFound)
	}
	for i := range toy.Messages {
		if toy.Messages[i].ID == messageID {
			toy.Messages = append(toy.Messages[:i], toy.Messages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("message %s: %w", messageID, store.ErrNotFound)
}

var (
	user1 = auth.Identity{UserID: "u1", Username: "alice"}
	user2 = auth.Identity{UserID: "u2", Username: "bob"}
	admin = auth.Identity{UserID: "u9", Username: "root", IsAdmin: true}
)

func newTestService(toyIDs ...string) (*Service, *fakeToyStore, *core.Hub) {
	st := newFakeToyStore(toyIDs...)
	hub := core.NewHub(nil)
	return New(st, hub, nil), st, hub
}

func recvEvent(t *testing.T, c *core.Client) *core.Event {
	t.Helper()
	select {
	case ev := <-c.Events:
		return ev
	default:
		t.Fatalf("expected an event for client %s", c.ID)
		return nil
	}
}

func assertNoEvent(t *testing.T, c *core.Client) {
	t.Helper()
	select {
	case ev := <-c.Events:
		t.Fatalf("expected no event for client %s, got %+v", c.ID, ev)
	default:
	}
}

func TestAddMessageBroadcastsPersistedResult(t *testing.T) {
	svc, _, hub := newTestService("t1")

	viewer := core.NewClient("c1", "u2", "bob")
	hub.Join("t1", viewer)

	msg, err := svc.AddMessage(context.Background(), "t1", user1, "hi")
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, "hi", msg.Content)

	ev := recvEvent(t, viewer)
	assert.Equal(t, core.EventMessageAdded, ev.Kind)
	assert.Equal(t, "t1", ev.ToyID)
	// The broadcast payload is the exact persisted message.
	assert.Equal(t, msg, ev.Message)
}

func TestAddMessageDeliversToAllRoomMembers(t *testing.T) {
	svc, _, hub := newTestService("t1")

	a := core.NewClient("c1", "u2", "bob")
	b := core.NewClient("c2", "u3", "carol")
	hub.Join("t1", a)
	hub.Join("t1", b)

	msg, err := svc.AddMessage(context.Background(), "t1", user1, "hello")
	require.NoError(t, err)

	evA := recvEvent(t, a)
	evB := recvEvent(t, b)
	assert.Equal(t, evA.Message, evB.Message)
	assert.Equal(t, msg.ID, evA.Message.ID)
	assertNoEvent(t, a) // exactly one event each
	assertNoEvent(t, b)
}

func TestAddMessageFailureEmitsNoBroadcast(t *testing.T) {
	svc, st, hub := newTestService("t1")

	viewer := core.NewClient("c1", "u2", "bob")
	hub.Join("t1", viewer)

	_, err := svc.AddMessage(context.Background(), "missing", user1, "hi")
	require.ErrorIs(t, err, store.ErrNotFound)
	assertNoEvent(t, viewer)

	_, err = svc.AddMessage(context.Background(), "t1", user1, "")
	require.ErrorIs(t, err, store.ErrInvalidInput)
	assertNoEvent(t, viewer)

	st.failAdd = errors.New("write concern error")
	_, err = svc.AddMessage(context.Background(), "t1", user1, "hi")
	require.ErrorContains(t, err, "write concern error")
	assertNoEvent(t, viewer)
}

func TestRemoveMessageByAuthor(t *testing.T) {
	svc, st, hub := newTestService("t1")

	viewer := core.NewClient("c1", "u2", "bob")
	hub.Join("t1", viewer)

	msg, err := svc.AddMessage(context.Background(), "t1", user1, "to be removed")
	require.NoError(t, err)
	recvEvent(t, viewer) // drain the add event

	require.NoError(t, svc.RemoveMessage(context.Background(), "t1", msg.ID, user1))

	ev := recvEvent(t, viewer)
	assert.Equal(t, core.EventMessageRemoved, ev.Kind)
	assert.Equal(t, msg.ID, ev.MessageID)

	toy, err := st.GetToy(context.Background(), "t1")
	require.NoError(t, err)
	assert.Empty(t, toy.Messages)
}

func TestRemoveMessageByAdmin(t *testing.T) {
	svc, _, hub := newTestService("t1")

	viewer := core.NewClient("c1", "u2", "bob")
	hub.Join("t1", viewer)

	msg, err := svc.AddMessage(context.Background(), "t1", user1, "spam")
	require.NoError(t, err)
	recvEvent(t, viewer)

	require.NoError(t, svc.RemoveMessage(context.Background(), "t1", msg.ID, admin))
	ev := recvEvent(t, viewer)
	assert.Equal(t, core.EventMessageRemoved, ev.Kind)
}

func TestRemoveMessageForbiddenForOtherUsers(t *testing.T) {
	svc, st, hub := newTestService("t1")

	viewer := core.NewClient("c1", "u3", "carol")
	hub.Join("t1", viewer)

	msg, err := svc.AddMessage(context.Background(), "t1", user1, "mine")
	require.NoError(t, err)
	recvEvent(t, viewer)

	err = svc.RemoveMessage(context.Background(), "t1", msg.ID, user2)
	require.ErrorIs(t, err, ErrForbidden)
	assertNoEvent(t, viewer)

	// Message is still there.
	toy, err := st.GetToy(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, toy.Messages, 1)
}

func TestRemoveMessageTwiceReportsNotFoundOnce(t *testing.T) {
	svc, _, hub := newTestService("t1")

	viewer := core.NewClient("c1", "u2", "bob")
	hub.Join("t1", viewer)

	msg, err := svc.AddMessage(context.Background(), "t1", user1, "hi")
	require.NoError(t, err)
	recvEvent(t, viewer)

	require.NoError(t, svc.RemoveMessage(context.Background(), "t1", msg.ID, admin))
	recvEvent(t, viewer)

	err = svc.RemoveMessage(context.Background(), "t1", msg.ID, admin)
	require.ErrorIs(t, err, store.ErrNotFound)
	assertNoEvent(t, viewer) // no second messageRemoved broadcast
}

func TestRemoveMessageUnknownToy(t *testing.T) {
	svc, _, _ := newTestService("t1")

	err := svc.RemoveMessage(context.Background(), "ghost", "m1", user1)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTypingExcludesTyper(t *testing.T) {
	svc, _, hub := newTestService("t1")

	typer := core.NewClient("c1", "u1", "alice")
	viewer := core.NewClient("c2", "u2", "bob")
	hub.Join("t1", typer)
	hub.Join("t1", viewer)

	svc.Typing("t1", user1, typer)

	assertNoEvent(t, typer)
	ev := recvEvent(t, viewer)
	assert.Equal(t, core.EventUserTyping, ev.Kind)
	assert.Equal(t, "alice", ev.Username)
}
