package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/calder/reply-gateway/internal/audit"
	"github.com/calder/reply-gateway/internal/composer"
	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"github.com/calder/reply-gateway/internal/factory"
	"github.com/calder/reply-gateway/internal/logging"
	"github.com/calder/reply-gateway/internal/policy"
)

// BuildContainer creates and configures a dependency injection container
// for the gateway daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration; a validation failure here is the only
	// fatal startup path
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register policy table
	if err := container.Provide(policy.FromConfig); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewGeneratorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewDedupFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTransportFactory); err != nil {
		return nil, err
	}

	// Register generator
	if err := container.Provide(func(f *factory.GeneratorFactory) (core.Generator, error) {
		return f.CreateGenerator()
	}); err != nil {
		return nil, err
	}

	// Register dedup store
	if err := container.Provide(func(f *factory.DedupFactory) (core.DedupStore, error) {
		return f.CreateDedupStore()
	}); err != nil {
		return nil, err
	}

	// Register mailbox and sender
	if err := container.Provide(func(f *factory.TransportFactory) core.Mailbox {
		return f.CreateMailbox()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.TransportFactory) core.Sender {
		return f.CreateSender()
	}); err != nil {
		return nil, err
	}

	// Register composer
	if err := container.Provide(func(gen core.Generator, cfg *config.Config, logger *zap.Logger) (core.ReplyComposer, error) {
		return composer.New(gen, cfg.GetCompose(), logger)
	}); err != nil {
		return nil, err
	}

	// Register audit log, both as the concrete log and as the sink
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *audit.Log {
		auditCfg := cfg.GetAudit()
		return audit.Open(auditCfg.Path, auditCfg.MaxEntries, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(l *audit.Log) core.AuditSink {
		return l
	}); err != nil {
		return nil, err
	}

	// Register orchestrator settings
	if err := container.Provide(func(cfg *config.Config) core.ServiceConfig {
		gw := cfg.GetGateway()
		return core.ServiceConfig{
			SelfAddress:   gw.SelfAddress,
			BatchSize:     gw.BatchSize,
			Workers:       gw.Workers,
			SubjectPrefix: gw.SubjectPrefix,
			SendTimeout:   cfg.GetSMTP().Timeout,
			DryRun:        gw.DryRun,
		}
	}); err != nil {
		return nil, err
	}

	// Register the gateway service
	if err := container.Provide(core.NewService); err != nil {
		return nil, err
	}

	return container, nil
}
