package resultcache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, requestHash string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[requestHash]
	if !ok {
		return nil, ErrCacheMiss
	}
	return cloneEntry(e), nil
}

// Insert implements Store
func (s *MemoryStore) Insert(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[entry.RequestHash]; ok {
		return ErrDuplicateEntry
	}
	s.entries[entry.RequestHash] = cloneEntry(entry)
	return nil
}

// Touch implements Store
func (s *MemoryStore) Touch(_ context.Context, requestHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[requestHash]
	if !ok {
		return ErrCacheMiss
	}
	e.HitCount++
	e.LastAccessedAt = &at
	return nil
}

// Delete implements Store
func (s *MemoryStore) Delete(_ context.Context, requestHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, requestHash)
	return nil
}

// DeleteExpired implements Store
func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Stats implements Store
func (s *MemoryStore) Stats(_ context.Context, now time.Time) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{Backend: "memory", Entries: int64(len(s.entries))}
	for _, e := range s.entries {
		stats.TotalHits += e.HitCount
		if e.Expired(now) {
			stats.Expired++
		}
	}
	return stats, nil
}

func cloneEntry(e *Entry) *Entry {
	c := *e
	if e.ResultPayload != nil {
		c.ResultPayload = append([]byte(nil), e.ResultPayload...)
	}
	if e.ExpiresAt != nil {
		t := *e.ExpiresAt
		c.ExpiresAt = &t
	}
	if e.LastAccessedAt != nil {
		t := *e.LastAccessedAt
		c.LastAccessedAt = &t
	}
	return &c
}
