// Package audit keeps the bounded, append-only record of every inbound
// message's disposition. The log is a ring of the most recent entries,
// persisted as a JSON file so operators can inspect it between runs.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/calder/reply-gateway/internal/core"
	"go.uber.org/zap"
)

// Log is a mutex-guarded ring buffer of audit entries with JSON file
// persistence. It implements core.AuditSink.
type Log struct {
	mu      sync.Mutex
	entries []core.AuditEntry
	max     int
	path    string
	logger  *zap.Logger
	dirty   bool
}

// Open loads the audit log from path. A missing or corrupt file is
// treated as an empty log with a logged warning; startup never fails on
// bad audit state.
func Open(path string, maxEntries int, logger *zap.Logger) *Log {
	l := &Log{
		max:    maxEntries,
		path:   path,
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read audit log, starting empty",
				zap.Error(err), zap.String("path", path))
		}
		return l
	}

	var entries []core.AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warn("Audit log is corrupt, starting empty",
			zap.Error(err), zap.String("path", path))
		return l
	}

	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}
	l.entries = entries
	return l
}

// Record appends an entry, evicting the oldest once the cap is reached.
func (l *Log) Record(entry core.AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if l.max > 0 && len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.dirty = true
}

// Entries returns a copy of the current entries, oldest first.
func (l *Log) Entries() []core.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]core.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Flush writes the log to disk if it changed since the last flush.
// The write is atomic: a temp file in the same directory is renamed over
// the target.
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return nil
	}

	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit log: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace audit log: %w", err)
	}

	l.dirty = false
	return nil
}

// Close flushes any pending entries.
func (l *Log) Close() error {
	return l.Flush()
}
