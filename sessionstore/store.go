// Package sessionstore persists conversation sessions and implements the
// status gate that keeps two turns from running on the same session at once.
package sessionstore

import (
	"context"
	"errors"

	"github.com/Armoredbrain/RoBoTo/bot"
)

var (
	// ErrNotFound reports an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrUnavailable reports a session that exists but is not AVAILABLE, so
	// another turn is running (or the conversation is closed).
	ErrUnavailable = errors.New("session is not available")
)

// Store is the session persistence surface. Claim is the status gate: it
// atomically flips exactly one AVAILABLE session to BUSY and returns it, so
// concurrent turns on the same session cannot interleave.
type Store interface {
	Create(ctx context.Context, session *bot.Session) error
	Get(ctx context.Context, id string) (*bot.Session, error)
	Save(ctx context.Context, session *bot.Session) error
	Claim(ctx context.Context, id string) (*bot.Session, error)
	SetStatus(ctx context.Context, id string, status bot.SessionStatus) error
}
