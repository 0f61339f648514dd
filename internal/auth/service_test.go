package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/toyshophq/toyshop-server/internal/store"
)

// memUserStore is an in-memory store.UserStore for tests.
type memUserStore struct {
	users map[string]*store.User // keyed by username
	next  int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*store.User)}
}

func (m *memUserStore) CreateUser(_ context.Context, username, fullname, passwordHash string) (*store.User, error) {
	if _, ok := m.users[username]; ok {
		return nil, fmt.Errorf("duplicate username %q", username)
	}
	m.next++
	u := &store.User{
		ID:           fmt.Sprintf("u%d", m.next),
		Username:     username,
		Fullname:     fullname,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.users[username] = u
	return u, nil
}

func (m *memUserStore) CreateGuestUser(_ context.Context, sessionID string) (*store.User, error) {
	m.next++
	u := &store.User{
		ID:        fmt.Sprintf("u%d", m.next),
		Username:  "guest_" + sessionID[:8],
		IsGuest:   true,
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
	m.users[u.Username] = u
	return u, nil
}

func (m *memUserStore) GetUserByID(_ context.Context, id string) (*store.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUserStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	u, ok := m.users[username]
	if !ok || u.IsGuest {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func newTestService(t *testing.T, guestMode bool) *Service {
	t.Helper()

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	return NewService(newMemUserStore(), jwtConfig, guestMode)
}

func TestRegister_RejectsInvalidUsername(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ab", "", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}

	// Should be validated after trimming whitespace.
	if _, err := svc.Register(ctx, " ab ", "", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
}

func TestRegister_RejectsInvalidPassword(t *testing.T) {
	svc := newTestService(t, false)

	if _, err := svc.Register(context.Background(), "abc", "", "12345"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_TrimsUsernameAndCreatesUser(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	token, err := svc.Register(ctx, " alice ", "Alice A", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	// Should collide because the stored username is trimmed.
	if _, err := svc.Register(ctx, "alice", "Alice A", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin_RoundTripsIdentity(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "Alice A", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Username != "alice" || claims.UserID == "" || claims.IsAdmin || claims.IsGuest {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLogin_RejectsWrongPassword(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestGuest_DisabledByConfig(t *testing.T) {
	svc := newTestService(t, false)

	if _, _, err := svc.CreateGuestUser(context.Background()); !errors.Is(err, ErrGuestsDisabled) {
		t.Fatalf("expected ErrGuestsDisabled, got %v", err)
	}
}

func TestGuest_IssuesGuestToken(t *testing.T) {
	svc := newTestService(t, true)

	token, sessionID, err := svc.CreateGuestUser(context.Background())
	if err != nil {
		t.Fatalf("guest login: %v", err)
	}
	if sessionID == "" {
		t.Fatalf("expected session id")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if !claims.IsGuest || claims.IsAdmin {
		t.Fatalf("unexpected guest claims: %+v", claims)
	}
}
