// internal/store/store.go
//
// Session persistence for in-flight games.
// A Session wraps a game.GameState snapshot with its owner and start time.
// Backends: in-memory (dev/tests) and Redis (shared across instances).

package store

import (
	"context"
	"errors"
	"time"

	"github.com/Cristianojr9/palavreco/internal/game"
)

var (
	// ErrNotFound is returned when no session exists for an ID.
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned when an optimistic update kept losing races.
	ErrConflict = errors.New("session update conflict")
)

// Session is one player's game in progress (or just finished).
type Session struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"ownerId"`
	StartedAt time.Time      `json:"startedAt"`
	State     game.GameState `json:"state"`
}

// clone returns a copy that shares no mutable data with s.
func (s Session) clone() Session {
	s.State = s.State.Clone()
	return s
}

// Store defines the persistence interface for game sessions.
type Store interface {
	// Create stores a new session. It fails if the ID is already taken.
	Create(ctx context.Context, s Session) error

	// Get returns a copy of the session, or ErrNotFound.
	Get(ctx context.Context, id string) (Session, error)

	// Update runs fn on the current session and persists the result.
	// Concurrent updates to the same ID are serialized. If fn returns an
	// error nothing is written and the error is returned as is.
	Update(ctx context.Context, id string, fn func(*Session) error) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
