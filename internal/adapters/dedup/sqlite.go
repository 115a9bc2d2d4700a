package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of core.DedupStore for
// deployments that want the records queryable in place.
type SQLiteStore struct {
	db        *sql.DB
	window    time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the reply log table.
func NewSQLiteStore(dbPath string, window, retention time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reply_log (
			fingerprint TEXT PRIMARY KEY,
			last_reply_at TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_last_reply_at ON reply_log(last_reply_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteStore{
		db:        db,
		window:    window,
		retention: retention,
		logger:    logger,
	}, nil
}

// WasRepliedRecently reports whether the fingerprint was replied to
// within the dedup window.
func (s *SQLiteStore) WasRepliedRecently(ctx context.Context, fingerprint string, now time.Time) (bool, error) {
	var lastReplyAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT last_reply_at FROM reply_log WHERE fingerprint = ?
	`, fingerprint).Scan(&lastReplyAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to query reply log: %w", err)
	}

	last, err := time.Parse(time.RFC3339, lastReplyAt)
	if err != nil {
		s.logger.Warn("Reply log record has bad timestamp, ignoring",
			zap.String("fingerprint", fingerprint), zap.String("value", lastReplyAt))
		return false, nil
	}
	return now.Sub(last) < s.window, nil
}

// MarkReplied upserts the record and prunes records past retention.
func (s *SQLiteStore) MarkReplied(ctx context.Context, fingerprint string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reply_log (fingerprint, last_reply_at)
		VALUES (?, ?)
	`, fingerprint, now.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert reply log record: %w", err)
	}

	cutoff := now.Add(-s.retention).UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM reply_log WHERE last_reply_at <= ?
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune reply log: %w", err)
	}

	if pruned, err := result.RowsAffected(); err == nil && pruned > 0 {
		s.logger.Debug("Pruned expired reply log records", zap.Int64("pruned", pruned))
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
