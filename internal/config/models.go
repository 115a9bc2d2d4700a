package config

import "time"

// GatewayConfig represents the gateway-wide settings
type GatewayConfig struct {
	SelfAddress   string
	BatchSize     int
	Workers       int
	PollInterval  time.Duration
	MaxBodyBytes  int
	SubjectPrefix string
	DryRun        bool
}

// IMAPConfig represents the mailbox connection settings
type IMAPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Mailbox    string
	Encryption string
	Timeout    time.Duration
}

// SMTPConfig represents the outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	Temperature float32
	TopP        float32
}

// ComposeConfig represents the reply composer settings
type ComposeConfig struct {
	MaxTokens     int
	Timeout       time.Duration
	MaxPromptBody int
	MaxReplyBytes int
	ProjectName   string
	ProjectLink   string
	SetupSteps    []string
	Signature     string
}

// DedupConfig represents the dedup store settings
type DedupConfig struct {
	Type       string
	Path       string
	SQLitePath string
	MySQLDSN   string
	Window     time.Duration
	Retention  time.Duration
}

// AuditConfig represents the audit log settings
type AuditConfig struct {
	Path       string
	MaxEntries int
}

// LoggingConfig represents the logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// GetGateway returns the gateway configuration
func (c *Config) GetGateway() GatewayConfig {
	return GatewayConfig{
		SelfAddress:   c.GetString("gateway.self_address"),
		BatchSize:     c.GetInt("gateway.batch_size"),
		Workers:       c.GetInt("gateway.workers"),
		PollInterval:  c.GetDuration("gateway.poll_interval"),
		MaxBodyBytes:  c.GetInt("gateway.max_body_bytes"),
		SubjectPrefix: c.GetString("gateway.subject_prefix"),
		DryRun:        c.GetBool("gateway.dry_run"),
	}
}

// GetIMAP returns the mailbox configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Host:       c.GetString("imap.host"),
		Port:       c.GetInt("imap.port"),
		Username:   c.GetString("imap.username"),
		Password:   c.GetString("imap.password"),
		Mailbox:    c.GetString("imap.mailbox"),
		Encryption: c.GetString("imap.encryption"),
		Timeout:    c.GetDuration("imap.timeout"),
	}
}

// GetSMTP returns the outbound mail configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Host:     c.GetString("smtp.host"),
		Port:     c.GetInt("smtp.port"),
		Username: c.GetString("smtp.username"),
		Password: c.GetString("smtp.password"),
		From:     c.GetString("smtp.from"),
		Timeout:  c.GetDuration("smtp.timeout"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetCompose returns the composer configuration
func (c *Config) GetCompose() ComposeConfig {
	return ComposeConfig{
		MaxTokens:     c.GetInt("compose.max_tokens"),
		Timeout:       c.GetDuration("compose.timeout"),
		MaxPromptBody: c.GetInt("compose.max_prompt_body"),
		MaxReplyBytes: c.GetInt("compose.max_reply_bytes"),
		ProjectName:   c.GetString("compose.project_name"),
		ProjectLink:   c.GetString("compose.project_link"),
		SetupSteps:    c.GetStringSlice("compose.setup_steps"),
		Signature:     c.GetString("compose.signature"),
	}
}

// GetDedup returns the dedup store configuration
func (c *Config) GetDedup() DedupConfig {
	return DedupConfig{
		Type:       c.GetString("dedup.type"),
		Path:       c.GetString("dedup.path"),
		SQLitePath: c.GetString("dedup.sqlite_path"),
		MySQLDSN:   c.GetString("dedup.mysql_dsn"),
		Window:     c.GetDuration("dedup.window"),
		Retention:  c.GetDuration("dedup.retention"),
	}
}

// GetAudit returns the audit log configuration
func (c *Config) GetAudit() AuditConfig {
	return AuditConfig{
		Path:       c.GetString("audit.path"),
		MaxEntries: c.GetInt("audit.max_entries"),
	}
}

// GetLogging returns the logger configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
