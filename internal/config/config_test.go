package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	gateway := cfg.GetGateway()
	assert.Equal(t, 30, gateway.BatchSize)
	assert.Equal(t, 4, gateway.Workers)
	assert.Equal(t, 2*time.Minute, gateway.PollInterval)
	assert.Equal(t, 3000, gateway.MaxBodyBytes)
	assert.Equal(t, "Re: ", gateway.SubjectPrefix)
	assert.False(t, gateway.DryRun)

	imap := cfg.GetIMAP()
	assert.Equal(t, 993, imap.Port)
	assert.Equal(t, "INBOX", imap.Mailbox)
	assert.Equal(t, "tls", imap.Encryption)
	assert.Equal(t, 30*time.Second, imap.Timeout)

	smtp := cfg.GetSMTP()
	assert.Equal(t, 587, smtp.Port)

	assert.Equal(t, "openai", cfg.GetLLM().Provider)

	compose := cfg.GetCompose()
	assert.Equal(t, 400, compose.MaxTokens)
	assert.Equal(t, 20*time.Second, compose.Timeout)
	assert.Equal(t, 4000, compose.MaxReplyBytes)

	dedup := cfg.GetDedup()
	assert.Equal(t, "file", dedup.Type)
	assert.Equal(t, 48*time.Hour, dedup.Window)
	assert.Equal(t, 168*time.Hour, dedup.Retention)

	audit := cfg.GetAudit()
	assert.Equal(t, 500, audit.MaxEntries)
}

func TestOverrides(t *testing.T) {
	v := NewEmptyViper()
	v.Set("gateway.self_address", "outreach@ourproject.dev")
	v.Set("gateway.workers", 8)
	v.Set("dedup.window", "24h")
	v.Set("compose.setup_steps", []string{"clone", "build"})
	cfg := NewFromViper(v)

	assert.Equal(t, "outreach@ourproject.dev", cfg.GetGateway().SelfAddress)
	assert.Equal(t, 8, cfg.GetGateway().Workers)
	assert.Equal(t, 24*time.Hour, cfg.GetDedup().Window)
	assert.Equal(t, []string{"clone", "build"}, cfg.GetCompose().SetupSteps)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("REPLY_GATEWAY_GATEWAY_BATCH_SIZE", "10")
	t.Setenv("REPLY_GATEWAY_IMAP_HOST", "imap.example.com")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.GetGateway().BatchSize)
	assert.Equal(t, "imap.example.com", cfg.GetIMAP().Host)
}

func TestValidate(t *testing.T) {
	t.Run("missing required keys", func(t *testing.T) {
		cfg := NewFromViper(NewEmptyViper())
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gateway.self_address")
		assert.Contains(t, err.Error(), "imap.host")
		assert.Contains(t, err.Error(), "smtp.host")
	})

	t.Run("complete configuration", func(t *testing.T) {
		v := NewEmptyViper()
		v.Set("gateway.self_address", "outreach@ourproject.dev")
		v.Set("imap.host", "imap.example.com")
		v.Set("imap.username", "outreach")
		v.Set("imap.password", "secret")
		v.Set("smtp.host", "smtp.example.com")
		v.Set("smtp.username", "outreach")
		v.Set("smtp.password", "secret")
		assert.NoError(t, NewFromViper(v).Validate())
	})
}
