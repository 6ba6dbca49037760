// Package state implements the lesson notes conversation: the step table, its
// validators, session persistence and the state machine driving them.
package state

import (
	"context"
	"errors"
)

// ErrSessionNotFound indicates that no session exists for the chat.
var ErrSessionNotFound = errors.New("session not found")

// Storage defines the persistence contract for conversation sessions.
type Storage interface {
	// Get returns the session for chatID or ErrSessionNotFound.
	Get(ctx context.Context, chatID int64) (*Session, error)
	// Save replaces the stored session, dropping any field not present in s.
	Save(ctx context.Context, s *Session) error
	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, chatID int64) error
	// List returns every stored session.
	List(ctx context.Context) ([]*Session, error)
}
