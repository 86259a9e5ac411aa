package qastore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// MemoryStore is an in-memory store backed by a sync.RWMutex-protected map.
// Entries are copied on load so callers cannot mutate store state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]broadcast.QAEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]broadcast.QAEntry)}
}

// Load returns the session's entries in answer order. Unknown sessions
// have no entries.
func (m *MemoryStore) Load(_ context.Context, sessionID string) ([]broadcast.QAEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]broadcast.QAEntry(nil), m.sessions[sessionID]...), nil
}

// Append records one entry.
func (m *MemoryStore) Append(_ context.Context, sessionID string, e broadcast.QAEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], e)
	return nil
}

// List returns the known session ids, sorted.
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	delete(m.sessions, sessionID)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
