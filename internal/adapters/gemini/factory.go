package gemini

import (
	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of Generator
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for Gemini generators
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGenerator creates a new Gemini generator
func (f *Factory) CreateGenerator() (core.Generator, error) {
	geminiCfg := f.cfg.GetGemini()

	return NewGenerator(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		f.logger,
	)
}
