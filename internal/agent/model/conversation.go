package model

import (
	"context"
)

type SessionRepository interface {
	// Load returns the stored session, or a fresh empty session when none exists.
	Load(ctx context.Context, sessionID string) (*Session, error)

	// Save persists slots and history. An empty session is deleted instead.
	Save(ctx context.Context, session *Session) error

	// Delete removes all state of a session.
	Delete(ctx context.Context, sessionID string) error
}
