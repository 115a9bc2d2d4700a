package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileStore persists dedup records as a JSON object of fingerprint to
// RFC 3339 timestamp. It is the default store: the whole record set is
// small (one entry per correspondent within retention) and the flat file
// is trivially portable and inspectable.
type FileStore struct {
	mu        sync.Mutex
	path      string
	entries   map[string]time.Time
	window    time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// OpenFileStore loads the store from path. A missing, unreadable, or
// corrupt file becomes an empty store with a logged warning; startup
// never fails on bad dedup state.
func OpenFileStore(path string, window, retention time.Duration, logger *zap.Logger) *FileStore {
	s := &FileStore{
		path:      path,
		entries:   make(map[string]time.Time),
		window:    window,
		retention: retention,
		logger:    logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read dedup store, starting empty",
				zap.Error(err), zap.String("path", path))
		}
		return s
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("Dedup store is corrupt, starting empty",
			zap.Error(err), zap.String("path", path))
		return s
	}

	for fp, ts := range raw {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			logger.Warn("Dropping dedup record with bad timestamp",
				zap.String("fingerprint", fp), zap.String("value", ts))
			continue
		}
		s.entries[fp] = t
	}
	return s
}

// WasRepliedRecently reports whether the fingerprint was replied to
// within the dedup window. Records aged past the window but inside
// retention still exist on disk and count as not recent.
func (s *FileStore) WasRepliedRecently(_ context.Context, fingerprint string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.entries[fingerprint]
	if !ok {
		return false, nil
	}
	return now.Sub(last) < s.window, nil
}

// MarkReplied upserts the record, prunes records past retention, and
// persists the store atomically.
func (s *FileStore) MarkReplied(_ context.Context, fingerprint string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[fingerprint] = now
	for fp, last := range s.entries {
		if now.Sub(last) >= s.retention {
			delete(s.entries, fp)
		}
	}
	return s.persist()
}

// Len returns the number of retained records.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close persists any state; the store writes on every mark, so this is
// usually a no-op rewrite.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

func (s *FileStore) persist() error {
	raw := make(map[string]string, len(s.entries))
	for fp, t := range s.entries {
		raw[fp] = t.UTC().Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dedup store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create dedup store directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dedup store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace dedup store: %w", err)
	}
	return nil
}
