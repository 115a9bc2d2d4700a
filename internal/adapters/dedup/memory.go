// Package dedup provides the per-sender reply dedup stores. Each store
// maps a sender fingerprint to the time of the last reply; lookups apply
// the dedup window, writes prune records past the retention window.
package dedup

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of core.DedupStore. It is
// used for tests and dry runs; records do not survive a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]time.Time
	window    time.Duration
	retention time.Duration
}

// NewMemoryStore creates a new in-memory dedup store.
func NewMemoryStore(window, retention time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:   make(map[string]time.Time),
		window:    window,
		retention: retention,
	}
}

// WasRepliedRecently reports whether the fingerprint was replied to
// within the dedup window.
func (s *MemoryStore) WasRepliedRecently(_ context.Context, fingerprint string, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last, ok := s.entries[fingerprint]
	if !ok {
		return false, nil
	}
	return now.Sub(last) < s.window, nil
}

// MarkReplied upserts the record and prunes records past retention.
func (s *MemoryStore) MarkReplied(_ context.Context, fingerprint string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[fingerprint] = now
	for fp, last := range s.entries {
		if now.Sub(last) >= s.retention {
			delete(s.entries, fp)
		}
	}
	return nil
}

// Len returns the number of retained records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
