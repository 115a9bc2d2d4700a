package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calder/reply-gateway/internal/audit"
	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"github.com/calder/reply-gateway/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	service *core.Service,
	mailbox core.Mailbox,
	dedupStore core.DedupStore,
	auditLog *audit.Log,
	generator core.Generator,
) error {
	defer logger.Sync()

	gw := cfg.GetGateway()
	logger.Info("Gateway starting",
		zap.String("self_address", gw.SelfAddress),
		zap.Duration("poll_interval", gw.PollInterval),
		zap.Bool("dry_run", gw.DryRun))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(gw.PollInterval)
	defer ticker.Stop()

	// First cycle runs immediately; later cycles on the ticker
	cycle(ctx, service, auditLog, logger)

loop:
	for {
		select {
		case <-ticker.C:
			cycle(ctx, service, auditLog, logger)
		case <-ctx.Done():
			break loop
		}
	}

	logger.Info("Shutting down...")

	if err := mailbox.Close(); err != nil {
		logger.Error("Failed to close mailbox", zap.Error(err))
	}
	if err := dedupStore.Close(); err != nil {
		logger.Error("Failed to close dedup store", zap.Error(err))
	}
	if err := auditLog.Close(); err != nil {
		logger.Error("Failed to flush audit log", zap.Error(err))
	}
	if closer, ok := generator.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close generator", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

// cycle runs one poll cycle and flushes the audit log. Cycle errors are
// logged and never fatal; the next tick tries again.
func cycle(ctx context.Context, service *core.Service, auditLog *audit.Log, logger *zap.Logger) {
	if ctx.Err() != nil {
		return
	}
	if _, err := service.RunCycle(ctx); err != nil {
		logger.Warn("Cycle failed", zap.Error(err))
	}
	if err := auditLog.Flush(); err != nil {
		logger.Error("Failed to flush audit log", zap.Error(err))
	}
}
