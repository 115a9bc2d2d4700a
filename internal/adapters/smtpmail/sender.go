// Package smtpmail implements the send capability over SMTP submission.
package smtpmail

import (
	"context"
	"fmt"
	"time"

	"github.com/calder/reply-gateway/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender is an SMTP implementation of the core.Sender interface.
type Sender struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// New creates a new SMTP sender. The From address defaults to the SMTP
// username when unset.
func New(cfg config.SMTPConfig, logger *zap.Logger) *Sender {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Sender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
		logger: logger,
	}
}

// Send delivers a plain-text message to a single recipient. The dial and
// send run under the caller's context deadline: on expiry the call
// returns the context error instead of hanging on the connection.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/plain", body)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send mail to %s: %w", to, err)
		}
		s.logger.Debug("Sent reply", zap.String("to", to), zap.String("subject", subject))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send to %s aborted: %w", to, ctx.Err())
	}
}
