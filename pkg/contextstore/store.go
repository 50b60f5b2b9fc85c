package contextstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a session identifier is not in the store.
// Callers map it to a 404; it is never a fatal condition.
var ErrNotFound = errors.New("session not found")

// Store defines keyed storage of session contexts. Implementations must be
// safe for concurrent use; Merge and Apply perform their read-modify-write
// atomically.
type Store interface {
	// Get returns a snapshot of the stored context. The caller may mutate
	// the returned value freely. Returns ErrNotFound for unknown ids.
	Get(ctx context.Context, sessionID string) (*SessionContext, error)

	// Set unconditionally creates or overwrites the stored context.
	Set(ctx context.Context, sessionID string, sc *SessionContext) error

	// Merge folds a partial update into an existing context per the field
	// policy table and returns the merged snapshot. Merge never creates:
	// it returns ErrNotFound for unknown ids.
	Merge(ctx context.Context, sessionID string, update *Update) (*SessionContext, error)

	// Apply runs fn against the stored context under the store's lock and
	// persists the result. When fn returns an error the prior state is
	// kept. Returns ErrNotFound for unknown ids.
	Apply(ctx context.Context, sessionID string, fn func(*SessionContext) error) (*SessionContext, error)

	// Delete removes a session. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, sessionID string) error

	// ListIDs returns all stored session identifiers.
	ListIDs(ctx context.Context) ([]string, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
}
