package store

import (
	"context"
	"errors"
	"time"
)

// Failure classes surfaced by every store implementation. Callers match
// with errors.Is; anything outside this set means the persistence layer
// was unavailable or rejected the write.
var (
	// ErrNotFound is returned when a toy, message, or user does not exist.
	// A missing toy and a missing message inside an existing toy are
	// deliberately not distinguished.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for empty message content or a malformed
	// identifier.
	ErrInvalidInput = errors.New("invalid input")
)

// User represents a shop account.
type User struct {
	ID           string
	Username     string
	Fullname     string
	PasswordHash string
	IsAdmin      bool
	IsGuest      bool
	SessionID    string // For guest session tracking
	CreatedAt    time.Time
}

// Toy represents a catalog item with its embedded discussion thread.
type Toy struct {
	ID        string
	Name      string
	Price     float64
	Labels    []string
	InStock   bool
	CreatedAt time.Time
	Messages  []Message // insertion order is the display order
}

// Message is one entry in a toy's discussion thread. The ID is allocated
// at creation and never reused, even after the message is removed.
type Message struct {
	ID        string
	UserID    string
	Username  string
	Content   string
	CreatedAt time.Time
}

// ToyFilter narrows QueryToys results. Zero values mean "no constraint".
type ToyFilter struct {
	Name    string   // case-insensitive substring match
	InStock *bool    // nil = both
	Labels  []string // toy must carry every listed label
}

// ToyPage is one page of query results plus the unpaginated total.
type ToyPage struct {
	Toys  []*Toy
	Total int64
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, fullname, passwordHash string) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a non-guest user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// ToyStore handles catalog persistence, including the embedded
// message-list operations the real-time layer depends on.
type ToyStore interface {
	// QueryToys returns one page of toys matching the filter, sorted by
	// sortBy (empty = insertion order), plus the total match count.
	QueryToys(ctx context.Context, filter ToyFilter, sortBy string, pageIdx, pageSize int) (*ToyPage, error)

	// GetToy retrieves a toy with its full message list.
	GetToy(ctx context.Context, toyID string) (*Toy, error)

	// AddToy inserts a new toy and returns it with its assigned ID.
	AddToy(ctx context.Context, toy *Toy) (*Toy, error)

	// UpdateToy overwrites the catalog fields of an existing toy. The
	// messages list is not touched.
	UpdateToy(ctx context.Context, toy *Toy) (*Toy, error)

	// RemoveToy deletes a toy and its embedded messages.
	RemoveToy(ctx context.Context, toyID string) error

	// AddToyMessage atomically appends a message to the toy's list and
	// returns the persisted message with its allocated ID and timestamp.
	// Must not read-modify-write the document: two concurrent adds to the
	// same toy both land, in some order, with neither lost.
	AddToyMessage(ctx context.Context, toyID, userID, username, content string) (*Message, error)

	// RemoveToyMessage atomically pulls a message by ID. Returns
	// ErrNotFound when the toy or the message does not exist.
	RemoveToyMessage(ctx context.Context, toyID, messageID string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ToyStore

	// Close releases the underlying database connection.
	Close(ctx context.Context) error
}
