package cache

import (
	"strings"
	"sync"
	"time"
)

// Store is one named TTL key-value store.
//
// Entries expire a fixed duration after each write; a Put on an existing key
// overwrites the value and resets its expiry. Expired entries are reaped
// lazily on read, so a store never needs a background sweeper.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Get returns the live value for key, or ok=false for a miss or expired entry.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	stored, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if s.now().After(stored.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have refreshed it.
		if current, exists := s.entries[key]; exists && s.now().After(current.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}

	return stored.value, true
}

// Put stores value under key with a fresh TTL window.
func (s *Store) Put(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(s.ttl)}
}

// Len reports the number of entries currently held, including not-yet-reaped
// expired ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Manager owns the set of named stores and creates them lazily.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager() *Manager {
	return &Manager{stores: make(map[string]*Store)}
}

// GetOrCreate returns the store registered under name, creating it on first
// use. Creation is idempotent: concurrent callers asking for the same name
// receive the same underlying store, and the TTL of the first creation wins.
func (m *Manager) GetOrCreate(name string, ttl time.Duration) *Store {
	name = strings.TrimSpace(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[name]; ok {
		return store
	}

	store := &Store{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	m.stores[name] = store

	return store
}
