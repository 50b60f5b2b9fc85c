package contextstore

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long a session lives before becoming eligible for
	// eviction.
	DefaultTTL = 24 * time.Hour

	// DefaultCleanupInterval is how often the eviction sweep runs.
	DefaultCleanupInterval = time.Hour
)

// EvictionBasis names the timestamp the TTL sweep measures age from.
type EvictionBasis string

const (
	// EvictSessionStart measures age from session creation. A long-lived,
	// actively used session is still evicted at the TTL mark.
	EvictSessionStart EvictionBasis = "session_start"

	// EvictLastTouch measures age from the most recent write.
	EvictLastTouch EvictionBasis = "last_touch"
)

// MemoryStoreConfig configures a MemoryStore. Zero values take defaults.
type MemoryStoreConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	EvictionBasis   EvictionBasis
}

// entry pairs a stored context with its last write time so either eviction
// basis can be evaluated.
type entry struct {
	sc          *SessionContext
	lastTouched time.Time
}

// MemoryStore implements Store with a mutex-guarded map and a periodic
// TTL sweep. All stored and returned contexts are snapshots; callers can
// never alias internal state.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry

	ttl             time.Duration
	cleanupInterval time.Duration
	basis           EvictionBasis

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.EvictionBasis == "" {
		cfg.EvictionBasis = EvictSessionStart
	}

	return &MemoryStore{
		entries:         make(map[string]*entry),
		ttl:             cfg.TTL,
		cleanupInterval: cfg.CleanupInterval,
		basis:           cfg.EvictionBasis,
	}
}

// Get returns a snapshot of the stored context.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*SessionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return e.sc.Clone(), nil
}

// Set creates or overwrites the stored context.
func (s *MemoryStore) Set(_ context.Context, sessionID string, sc *SessionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sessionID] = &entry{sc: sc.Clone(), lastTouched: time.Now()}
	return nil
}

// Merge folds a partial update into an existing context. The merge is
// applied to a copy first, so the prior state survives intact if anything
// goes wrong.
func (s *MemoryStore) Merge(_ context.Context, sessionID string, update *Update) (*SessionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	merged := update.apply(e.sc)
	s.entries[sessionID] = &entry{sc: merged, lastTouched: time.Now()}
	return merged.Clone(), nil
}

// Apply runs fn against a copy of the stored context under the write lock
// and persists the result when fn succeeds.
func (s *MemoryStore) Apply(_ context.Context, sessionID string, fn func(*SessionContext) error) (*SessionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	updated := e.sc.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}

	s.entries[sessionID] = &entry{sc: updated, lastTouched: time.Now()}
	return updated.Clone(), nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sessionID)
	return nil
}

// ListIDs returns all stored session identifiers.
func (s *MemoryStore) ListIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids, nil
}

// Count returns the number of stored sessions.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries), nil
}

// Cleanup removes every session whose age exceeds the TTL, measured per the
// configured eviction basis. It returns the number of sessions removed.
func (s *MemoryStore) Cleanup(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	for id, e := range s.entries {
		if s.expired(e, cutoff) {
			delete(s.entries, id)
			removed++
			slog.Debug("contextstore: evicted expired session", "session_id", id)
		}
	}
	return removed
}

func (s *MemoryStore) expired(e *entry, cutoff time.Time) bool {
	if s.basis == EvictLastTouch {
		return e.lastTouched.Before(cutoff)
	}
	return e.sc.StartedAt().Before(cutoff)
}

// StartCleanupRoutine starts the periodic eviction sweep. It is idempotent:
// calling it again never starts a second timer. The goroutine stops when
// Close is called.
func (s *MemoryStore) StartCleanupRoutine() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})

		go func() {
			defer close(s.done)

			ticker := time.NewTicker(s.cleanupInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := s.Cleanup(ctx); n > 0 {
						slog.Info("contextstore: cleanup sweep", "removed", n)
					}
				}
			}
		}()
	})
}

// Close stops the cleanup goroutine and waits for it to exit.
// It is safe to call Close even if StartCleanupRoutine was never called.
func (s *MemoryStore) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
