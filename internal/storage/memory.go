package storage

import (
	"context"
	"sync"
	"time"
)

// Ensure MemoryStore implements the interfaces
var _ Store = (*MemoryStore)(nil)
var _ Sweepable = (*MemoryStore)(nil)

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryStore is the single-instance store. Suitable for the origin role and
// for relays that run as one process; multi-instance relays need the redis
// store so the /auth and /callback requests can land on different hosts.
type MemoryStore struct {
	mu       sync.Mutex
	ttls     TTLConfig
	attempts map[string]memoryEntry[LoginAttempt]
	states   map[string]memoryEntry[RelayState]
	staged   map[string]memoryEntry[StagedLogin]
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore(ttls TTLConfig) *MemoryStore {
	return &MemoryStore{
		ttls:     ttls,
		attempts: make(map[string]memoryEntry[LoginAttempt]),
		states:   make(map[string]memoryEntry[RelayState]),
		staged:   make(map[string]memoryEntry[StagedLogin]),
	}
}

func storeEntry[T any](m map[string]memoryEntry[T], key string, value T, ttl time.Duration) {
	m[key] = memoryEntry[T]{value: value, expiresAt: time.Now().Add(ttl)}
}

func consumeEntry[T any](m map[string]memoryEntry[T], key string) (*T, error) {
	entry, ok := m[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m, key) // one-time use
	if time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	return &entry.value, nil
}

func (s *MemoryStore) StoreLoginAttempt(_ context.Context, id string, attempt LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	storeEntry(s.attempts, id, attempt, s.ttls.LoginAttempt)
	return nil
}

func (s *MemoryStore) ConsumeLoginAttempt(_ context.Context, id string) (*LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return consumeEntry(s.attempts, id)
}

func (s *MemoryStore) StoreRelayState(_ context.Context, state string, rs RelayState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	storeEntry(s.states, state, rs, s.ttls.RelayState)
	return nil
}

func (s *MemoryStore) ConsumeRelayState(_ context.Context, state string) (*RelayState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return consumeEntry(s.states, state)
}

func (s *MemoryStore) StoreStagedLogin(_ context.Context, id string, staged StagedLogin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	storeEntry(s.staged, id, staged, s.ttls.StagedLogin)
	return nil
}

func (s *MemoryStore) ConsumeStagedLogin(_ context.Context, id string) (*StagedLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return consumeEntry(s.staged, id)
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// CleanupExpired removes expired entries and reports how many were dropped
func (s *MemoryStore) CleanupExpired(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := 0
	count += sweep(s.attempts, now)
	count += sweep(s.states, now)
	count += sweep(s.staged, now)
	return count, nil
}

func sweep[T any](m map[string]memoryEntry[T], now time.Time) int {
	count := 0
	for key, entry := range m {
		if now.After(entry.expiresAt) {
			delete(m, key)
			count++
		}
	}
	return count
}
