package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const mysqlTimeFormat = "2006-01-02 15:04:05"

// MySQLStore is a MySQL implementation of core.DedupStore for
// deployments where several tools share one database.
type MySQLStore struct {
	db        *sql.DB
	window    time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewMySQLStore opens the connection and ensures the reply log table
// exists.
func NewMySQLStore(dsn string, window, retention time.Duration, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reply_log (
			fingerprint VARCHAR(64) PRIMARY KEY,
			last_reply_at DATETIME,
			INDEX idx_last_reply_at (last_reply_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:        db,
		window:    window,
		retention: retention,
		logger:    logger,
	}, nil
}

// WasRepliedRecently reports whether the fingerprint was replied to
// within the dedup window.
func (s *MySQLStore) WasRepliedRecently(ctx context.Context, fingerprint string, now time.Time) (bool, error) {
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

	last, err := time.Parse(mysqlTimeFormat, lastReplyAt)
	if err != nil {
		s.logger.Warn("Reply log record has bad timestamp, ignoring",
			zap.String("fingerprint", fingerprint), zap.String("value", lastReplyAt))
		return false, nil
	}
	return now.UTC().Sub(last) < s.window, nil
}

// MarkReplied upserts the record and prunes records past retention.
func (s *MySQLStore) MarkReplied(ctx context.Context, fingerprint string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reply_log (fingerprint, last_reply_at)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE last_reply_at = VALUES(last_reply_at)
	`, fingerprint, now.UTC().Format(mysqlTimeFormat))
	if err != nil {
		return fmt.Errorf("failed to upsert reply log record: %w", err)
	}

	cutoff := now.Add(-s.retention).UTC().Format(mysqlTimeFormat)
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
