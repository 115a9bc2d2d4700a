// Package composer turns a qualifying inbound message into reply text.
// The generation capability is treated as unreliable: any failure falls
// back to a static template carrying the same essential facts, so Compose
// always returns usable text.
package composer

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"github.com/calder/reply-gateway/internal/textutil"
	"go.uber.org/zap"
)

const promptFormat = `You are replying on behalf of the maintainer of %s.
Write a short, warm, plain-text reply to the email below. Keep it under
150 words, no markdown, no subject line, no placeholders.

Facts you must mention:
- Project link: %s
%s
Email you are replying to:
Subject: %s
Body:
%s

Write only the reply body and nothing else.`

const fallbackTemplate = `Hi,

Thanks a lot for reaching out about {{.ProjectName}} - messages like yours
are the reason the project keeps moving.

You can find everything here: {{.ProjectLink}}
{{if .SetupSteps}}
Getting started:
{{range .SetupSteps}}  - {{.}}
{{end}}{{end}}
If anything is unclear, just reply to this email.

{{.Signature}}`

// Composer implements core.ReplyComposer.
type Composer struct {
	gen      core.Generator
	cfg      config.ComposeConfig
	logger   *zap.Logger
	fallback string
}

// New builds a composer. gen may be nil, in which case every reply uses
// the fallback template.
func New(gen core.Generator, cfg config.ComposeConfig, logger *zap.Logger) (*Composer, error) {
	fallback, err := renderFallback(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render fallback template: %w", err)
	}
	return &Composer{
		gen:      gen,
		cfg:      cfg,
		logger:   logger,
		fallback: fallback,
	}, nil
}

// Compose produces the reply text for a message. It never fails: on any
// generation error the static fallback is returned with usedFallback set.
func (c *Composer) Compose(ctx context.Context, msg *core.Message) (string, bool) {
	if c.gen == nil {
		return c.fallback, true
	}

	genCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	text, err := c.gen.Generate(genCtx, c.prompt(msg), c.cfg.MaxTokens)
	if err != nil {
		c.logger.Warn("Generation failed, using fallback reply",
			zap.Error(err),
			zap.String("subject", msg.Subject))
		return c.fallback, true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.Warn("Generation returned empty text, using fallback reply",
			zap.String("subject", msg.Subject))
		return c.fallback, true
	}

	return textutil.Clean(text, c.cfg.MaxReplyBytes), false
}

// Fallback exposes the rendered fallback text.
func (c *Composer) Fallback() string {
	return c.fallback
}

func (c *Composer) prompt(msg *core.Message) string {
	var steps strings.Builder
	for _, step := range c.cfg.SetupSteps {
		fmt.Fprintf(&steps, "- Setup: %s\n", step)
	}

	body := textutil.Clean(msg.Body, c.cfg.MaxPromptBody)
	return fmt.Sprintf(promptFormat,
		c.cfg.ProjectName,
		c.cfg.ProjectLink,
		steps.String(),
		msg.Subject,
		body)
}

func renderFallback(cfg config.ComposeConfig) (string, error) {
	tmpl, err := template.New("fallback").Parse(fallbackTemplate)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}
