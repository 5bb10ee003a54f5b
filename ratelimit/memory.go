package ratelimit

import (
	"context"
	"sync"
	"time"
)

const defaultReapInterval = time.Minute

type memoryEntry struct {
	count       int64
	windowStart time.Time
	expiresAt   time.Time
}

// MemoryStore is an in-process fixed-window counter store. A background
// reaper removes expired entries on a fixed interval to bound memory; it
// only ever touches entries whose window has already elapsed.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry

	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewMemoryStore creates a MemoryStore and starts its reaper. reapInterval
// <= 0 uses a one-minute default. Callers own the store lifecycle and must
// Close it.
func NewMemoryStore(reapInterval time.Duration) *MemoryStore {
	if reapInterval <= 0 {
		reapInterval = defaultReapInterval
	}

	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		done:    make(chan struct{}),
		now:     time.Now,
	}

	go s.reap(reapInterval)

	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string, _ time.Duration) (int64, time.Time, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		return 0, time.Time{}, nil
	}

	return e.count, e.expiresAt, nil
}

// Incr implements Store.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &memoryEntry{
			count:       1,
			windowStart: now,
			expiresAt:   now.Add(window),
		}
		s.entries[key] = e
		return e.count, e.expiresAt, nil
	}

	e.count++
	return e.count, e.expiresAt, nil
}

// Close stops the reaper. The store remains usable afterwards; only the
// background cleanup stops.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *MemoryStore) reap(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reapExpired()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) reapExpired() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}
