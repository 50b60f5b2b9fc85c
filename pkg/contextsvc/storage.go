// Package contextsvc is the client-side context service. It keeps one
// session context current, records page visits and activity as the user
// moves through the app, and syncs snapshots to the backend and to the
// MCP bridge. A Service instance belongs to a single goroutine; the
// server-side store handles concurrent access.
package contextsvc

// Storage persists the serialized context between service instances
// within a session. Implementations are session-scoped key/value stores.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStorage is a Storage backed by a plain map.
type MemoryStorage struct {
	values map[string]string
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) {
	m.values[key] = value
}

func (m *MemoryStorage) Delete(key string) {
	delete(m.values, key)
}

var _ Storage = (*MemoryStorage)(nil)
