package throttle

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int
	expiresAt time.Time
}

// MemoryStore is an in-process Store used when no Redis backend is
// configured. Expired entries are dropped lazily on access; a periodic
// PurgeExpired sweep keeps the map from accumulating dead addresses.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Count(_ context.Context, address string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[address]
	if !ok {
		return 0, nil
	}
	if !e.expiresAt.After(s.now()) {
		delete(s.entries, address)
		return 0, nil
	}
	return e.count, nil
}

func (s *MemoryStore) Increment(_ context.Context, address string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 1
	if e, ok := s.entries[address]; ok && e.expiresAt.After(now) {
		count = e.count + 1
	}
	s.entries[address] = entry{count: count, expiresAt: now.Add(s.ttl)}
	return count, nil
}

func (s *MemoryStore) Clear(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, address)
	return nil
}

// PurgeExpired removes every lapsed entry and returns how many were dropped.
// Called by the background janitor.
func (s *MemoryStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0
	for address, e := range s.entries {
		if !e.expiresAt.After(now) {
			delete(s.entries, address)
			purged++
		}
	}
	return purged, nil
}

var _ Store = (*MemoryStore)(nil)
