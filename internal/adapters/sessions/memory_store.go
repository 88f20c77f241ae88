package sessions

import (
	"context"
	"sync"
	"time"

	"trip-planner-service/internal/domain"
)

type memoryEntry struct {
	payload   []byte
	version   int64
	expiresAt time.Time
}

// MemorySessionStore is a process-local SessionStore. Sessions are stored
// encoded so callers never share memory with the store.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	e, ok := m.live(id)
	m.mu.Unlock()

	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return decodeSession(e.payload)
}

func (m *MemorySessionStore) Put(_ context.Context, s *domain.Session, ttl time.Duration) error {
	payload, err := encodeSession(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = memoryEntry{payload: payload, version: s.Version, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemorySessionStore) CompareAndSwap(
	_ context.Context,
	id string,
	expectedVersion int64,
	s *domain.Session,
	ttl time.Duration,
) (bool, error) {
	payload, err := encodeSession(s)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(id)
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	if e.version != expectedVersion {
		return false, nil
	}

	m.entries[id] = memoryEntry{payload: payload, version: s.Version, expiresAt: m.now().Add(ttl)}
	return true, nil
}

// live must be called with mu held.
func (m *MemorySessionStore) live(id string) (memoryEntry, bool) {
	e, ok := m.entries[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, id)
		return memoryEntry{}, false
	}
	return e, true
}
