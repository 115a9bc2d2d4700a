package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/calder/reply-gateway/internal/adapters/dedup"
	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"go.uber.org/zap"
)

// DedupFactory creates dedup stores based on configuration
type DedupFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDedupFactory creates a new dedup store factory
func NewDedupFactory(cfg *config.Config, logger *zap.Logger) *DedupFactory {
	return &DedupFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDedupStore creates a dedup store based on the configuration
func (f *DedupFactory) CreateDedupStore() (core.DedupStore, error) {
	dedupCfg := f.cfg.GetDedup()

	switch dedupCfg.Type {
	case "memory":
		return dedup.NewMemoryStore(dedupCfg.Window, dedupCfg.Retention), nil
	case "file":
		if err := os.MkdirAll(filepath.Dir(dedupCfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create dedup store directory: %w", err)
		}
		return dedup.OpenFileStore(dedupCfg.Path, dedupCfg.Window, dedupCfg.Retention, f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(dedupCfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return dedup.NewSQLiteStore(dedupCfg.SQLitePath, dedupCfg.Window, dedupCfg.Retention, f.logger)
	case "mysql":
		return dedup.NewMySQLStore(dedupCfg.MySQLDSN, dedupCfg.Window, dedupCfg.Retention, f.logger)
	default:
		return nil, fmt.Errorf("unsupported dedup store type: %s", dedupCfg.Type)
	}
}
