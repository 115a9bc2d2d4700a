package factory

import (
	"fmt"

	"github.com/calder/reply-gateway/internal/adapters/bedrock"
	"github.com/calder/reply-gateway/internal/adapters/gemini"
	"github.com/calder/reply-gateway/internal/adapters/openai"
	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"go.uber.org/zap"
)

// GeneratorFactory creates text generators
type GeneratorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGeneratorFactory creates a new generator factory
func NewGeneratorFactory(cfg *config.Config, logger *zap.Logger) *GeneratorFactory {
	return &GeneratorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGenerator creates a generator based on the configuration.
// Provider "none" returns nil: the composer then always uses the
// fallback template, which is a supported mode of operation.
func (f *GeneratorFactory) CreateGenerator() (core.Generator, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "none", "":
		f.logger.Info("No generation provider configured, replies use the fallback template")
		return nil, nil
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateGenerator()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateGenerator()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateGenerator()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
