package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/reply-gateway/")
	v.AddConfigPath("$HOME/.reply-gateway")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("REPLY_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Gateway defaults
	v.SetDefault("gateway.self_address", "")
	v.SetDefault("gateway.batch_size", 30)
	v.SetDefault("gateway.workers", 4)
	v.SetDefault("gateway.poll_interval", "2m")
	v.SetDefault("gateway.max_body_bytes", 3000)
	v.SetDefault("gateway.subject_prefix", "Re: ")
	v.SetDefault("gateway.dry_run", false)

	// IMAP defaults
	v.SetDefault("imap.host", "")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.encryption", "tls")
	v.SetDefault("imap.timeout", "30s")

	// SMTP defaults
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.timeout", "30s")

	// LLM provider defaults
	v.SetDefault("llm.provider", "openai")

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.top_p", 0.9)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.temperature", 0.7)
	v.SetDefault("bedrock.top_p", 0.9)

	// Composer defaults
	v.SetDefault("compose.max_tokens", 400)
	v.SetDefault("compose.timeout", "20s")
	v.SetDefault("compose.max_prompt_body", 2000)
	v.SetDefault("compose.max_reply_bytes", 4000)
	v.SetDefault("compose.project_name", "")
	v.SetDefault("compose.project_link", "")
	v.SetDefault("compose.setup_steps", []string{})
	v.SetDefault("compose.signature", "")

	// Dedup store defaults
	v.SetDefault("dedup.type", "file")
	v.SetDefault("dedup.path", "/data/reply_log.json")
	v.SetDefault("dedup.sqlite_path", "/data/reply_log.db")
	v.SetDefault("dedup.mysql_dsn", "user:password@tcp(localhost:3306)/reply_gateway")
	v.SetDefault("dedup.window", "48h")
	v.SetDefault("dedup.retention", "168h")

	// Audit defaults
	v.SetDefault("audit.path", "/data/audit_log.json")
	v.SetDefault("audit.max_entries", 500)

	// Policy defaults live in the policy package; config lists override them
	v.SetDefault("policy.blocked_domains", []string{})
	v.SetDefault("policy.auto_prefixes", []string{})
	v.SetDefault("policy.subject_phrases", []string{})
	v.SetDefault("policy.body_phrases", []string{})
	v.SetDefault("policy.automation_keywords", []string{})
	v.SetDefault("policy.topics", []string{})
	v.SetDefault("policy.classify_body_bytes", 2000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that the configuration required to run the daemon is present.
// A failure here is the only fatal startup condition.
func (c *Config) Validate() error {
	var missing []string
	for _, key := range []string{
		"gateway.self_address",
		"imap.host",
		"imap.username",
		"imap.password",
		"smtp.host",
		"smtp.username",
		"smtp.password",
	} {
		if c.GetString(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
