package http

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/toyshophq/toyshop-server/internal/auth"
	"github.com/toyshophq/toyshop-server/internal/config"
	"github.com/toyshophq/toyshop-server/internal/core"
	"github.com/toyshophq/toyshop-server/internal/service/toys"
	"github.com/toyshophq/toyshop-server/internal/store"
)

// memStore is an in-memory store.Store used instead of a live MongoDB in
// transport tests. List mutations mirror the document store's semantics:
// append and pull-by-id, one not-found condition for toy and message.
type memStore struct {
	mu      sync.Mutex
	users   map[string]*store.User // by username
	toys    map[string]*store.Toy
	nextID  int
	guestID int
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*store.User),
		toys:  make(map[string]*store.Toy),
	}
}

func (m *memStore) seedToy(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toys[id] = &store.Toy{ID: id, Name: name, InStock: true, CreatedAt: time.Now(), Labels: []string{}}
}

func (m *memStore) CreateUser(_ context.Context, username, fullname, passwordHash string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return nil, fmt.Errorf("duplicate username %q", username)
	}
	m.nextID++
	u := &store.User{
		ID:           fmt.Sprintf("u%d", m.nextID),
		Username:     username,
		Fullname:     fullname,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.users[username] = u
	return u, nil
}

func (m *memStore) CreateGuestUser(_ context.Context, sessionID string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guestID++
	u := &store.User{
		ID:        fmt.Sprintf("g%d", m.guestID),
		Username:  "guest_" + sessionID[:8],
		IsGuest:   true,
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
	m.users[u.Username] = u
	return u, nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok || u.IsGuest {
		return nil, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	return u, nil
}

func (m *memStore) QueryToys(_ context.Context, filter store.ToyFilter, _ string, pageIdx, pageSize int) (*store.ToyPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*store.Toy, 0, len(m.toys))
	for _, toy := range m.toys {
		if filter.InStock != nil && toy.InStock != *filter.InStock {
			continue
		}
		matched = append(matched, copyToy(toy))
	}

	page := &store.ToyPage{Toys: matched, Total: int64(len(matched))}
	if pageSize > 0 {
		start := pageIdx * pageSize
		if start > len(matched) {
			start = len(matched)
		}
		end := start + pageSize
		if end > len(matched) {
			end = len(matched)
		}
		page.Toys = matched[start:end]
	}
	return page, nil
}

func (m *memStore) GetToy(_ context.Context, toyID string) (*store.Toy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	toy, ok := m.toys[toyID]
	if !ok {
		return nil, fmt.Errorf("toy %s: %w", toyID, store.ErrNotFound)
	}
	return copyToy(toy), nil
}

func (m *memStore) AddToy(_ context.Context, toy *store.Toy) (*store.Toy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	stored := copyToy(toy)
	stored.ID = fmt.Sprintf("t%d", m.nextID)
	stored.CreatedAt = time.Now()
	if stored.Labels == nil {
		stored.Labels = []string{}
	}
	m.toys[stored.ID] = stored
	return copyToy(stored), nil
}

func (m *memStore) UpdateToy(_ context.Context, toy *store.Toy) (*store.Toy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.toys[toy.ID]
	if !ok {
		return nil, fmt.Errorf("toy %s: %w", toy.ID, store.ErrNotFound)
	}
	existing.Name = toy.Name
	existing.Price = toy.Price
	existing.Labels = toy.Labels
	existing.InStock = toy.InStock
	return copyToy(existing), nil
}

func (m *memStore) RemoveToy(_ context.Context, toyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.toys[toyID]; !ok {
		return fmt.Errorf("toy %s: %w", toyID, store.ErrNotFound)
	}
	delete(m.toys, toyID)
	return nil
}

func (m *memStore) AddToyMessage(_ context.Context, toyID, userID, username, content string) (*store.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", store.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	toy, ok := m.toys[toyID]
	if !ok {
		return nil, fmt.Errorf("toy %s: %w", toyID, store.ErrNotFound)
	}
	m.nextID++
	msg := store.Message{
		ID:        fmt.Sprintf("m%d", m.nextID),
		UserID:    userID,
		Username:  username,
		Content:   content,
		CreatedAt: time.Now(),
	}
	toy.Messages = append(toy.Messages, msg)
	return &msg, nil
}

func (m *memStore) RemoveToyMessage(_ context.Context, toyID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	toy, ok := m.toys[toyID]
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

func (m *memStore) Close(context.Context) error { return nil }

func copyToy(toy *store.Toy) *store.Toy {
	cp := *toy
	cp.Messages = append([]store.Message(nil), toy.Messages...)
	cp.Labels = append([]string(nil), toy.Labels...)
	return &cp
}

// testJWTConfig is shared by every transport test.
func testJWTConfig() *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
}

// testServer bundles everything a transport test needs.
type testServer struct {
	ts    *httptest.Server
	store *memStore
	auth  *auth.Service
	hub   *core.Hub
}

// startTestServer spins up the full HTTP surface against an in-memory store.
func startTestServer(t *testing.T) *testServer {
	t.Helper()

	st := newMemStore()
	logger := zerolog.Nop()
	authService := auth.NewService(st, testJWTConfig(), true)
	hub := core.NewHub(&logger)
	toyService := toys.New(st, hub, &logger)

	server := NewServer(hub, authService, toyService, st, config.Config{
		Addr:               ":0",
		ReadHeaderTimeout:  time.Second,
		ShutdownTimeout:    time.Second,
		WSMessageRateLimit: 0,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, store: st, auth: authService, hub: hub}
}

// tokenFor mints a token for an arbitrary identity without going through
// the register flow.
func tokenFor(t *testing.T, userID, username string, isAdmin bool) string {
	t.Helper()

	token, err := auth.GenerateToken(testJWTConfig(), userID, username, isAdmin, false)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}
