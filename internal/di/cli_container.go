package di

import (
	"flag"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/calder/reply-gateway/internal/composer"
	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"github.com/calder/reply-gateway/internal/factory"
	"github.com/calder/reply-gateway/internal/logging"
	"github.com/calder/reply-gateway/internal/policy"
)

// CLIFlags contains all command line flags for the triage CLI
type CLIFlags struct {
	// Message input
	InputFile string

	// Classification flags
	SelfAddress string
	Topics      string

	// Generation flags
	Provider        string
	MaxTokens       int
	OpenAIAPIKey    string
	OpenAIModelName string
	GeminiAPIKey    string
	GeminiModelName string
	BedrockRegion   string
	BedrockModelID  string

	// Behavior flags
	Compose    bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")

	flag.StringVar(&flags.SelfAddress, "self", "", "The gateway's own mailbox address")
	flag.StringVar(&flags.Topics, "topics", "", "Comma-separated topic keywords")

	flag.StringVar(&flags.Provider, "provider", "none", "Generation provider (none, openai, gemini, bedrock)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 400, "Maximum tokens for the generated reply")
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4", "OpenAI model name")
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	flag.BoolVar(&flags.Compose, "compose", false, "Also compose and print the reply that would be sent")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection
// container for the triage CLI. The CLI never sends mail and never
// touches the dedup store, so neither is registered here.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register policy table
	if err := container.Provide(policy.FromConfig); err != nil {
		return nil, err
	}

	// Register generator factory and generator
	if err := container.Provide(factory.NewGeneratorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.GeneratorFactory) (core.Generator, error) {
		return f.CreateGenerator()
	}); err != nil {
		return nil, err
	}

	// Register composer
	if err := container.Provide(func(gen core.Generator, cfg *config.Config, logger *zap.Logger) (core.ReplyComposer, error) {
		return composer.New(gen, cfg.GetCompose(), logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("gateway.self_address", flags.SelfAddress)
	v.Set("llm.provider", flags.Provider)
	v.Set("compose.max_tokens", flags.MaxTokens)

	switch flags.Provider {
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
	}

	if flags.Topics != "" {
		topics := strings.Split(flags.Topics, ",")
		for i, topic := range topics {
			topics[i] = strings.TrimSpace(topic)
		}
		v.Set("policy.topics", topics)
	}

	return config.NewFromViper(v)
}
