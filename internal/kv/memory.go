package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryBackend is a process-local backend: [namespace][key]entry.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string]memoryEntry
	now  func() time.Time
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]map[string]memoryEntry),
		now:  time.Now,
	}
}

// SetClock replaces the time source used for expiry.
func (m *MemoryBackend) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Namespace returns the store for name.
func (m *MemoryBackend) Namespace(name string) Store {
	return &memoryStore{backend: m, namespace: name}
}

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }

type memoryStore struct {
	backend   *MemoryBackend
	namespace string
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m := s.backend
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.data[s.namespace][key]
	if !ok || entry.expired(m.now()) {
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (s *memoryStore) Put(_ context.Context, key string, value []byte, opts ...PutOption) error {
	options := resolvePutOptions(opts)
	m := s.backend
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[s.namespace] == nil {
		m.data[s.namespace] = make(map[string]memoryEntry)
	}
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if options.TTL > 0 {
		entry.expiresAt = m.now().Add(options.TTL)
	}
	m.data[s.namespace][key] = entry
	return nil
}

func (s *memoryStore) PutIfAbsent(_ context.Context, key string, value []byte, opts ...PutOption) (bool, error) {
	options := resolvePutOptions(opts)
	m := s.backend
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if entry, ok := m.data[s.namespace][key]; ok && !entry.expired(now) {
		return false, nil
	}
	if m.data[s.namespace] == nil {
		m.data[s.namespace] = make(map[string]memoryEntry)
	}
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if options.TTL > 0 {
		entry.expiresAt = now.Add(options.TTL)
	}
	m.data[s.namespace][key] = entry
	return true, nil
}

func (s *memoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m := s.backend
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	keys := make([]string, 0)
	for key, entry := range m.data[s.namespace] {
		if entry.expired(now) {
			delete(m.data[s.namespace], key)
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	m := s.backend
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[s.namespace], key)
	return nil
}
