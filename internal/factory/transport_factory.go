package factory

import (
	"github.com/calder/reply-gateway/internal/adapters/imapbox"
	"github.com/calder/reply-gateway/internal/adapters/smtpmail"
	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"go.uber.org/zap"
)

// TransportFactory creates the mailbox and sender capabilities
type TransportFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTransportFactory creates a new transport factory
func NewTransportFactory(cfg *config.Config, logger *zap.Logger) *TransportFactory {
	return &TransportFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailbox creates the IMAP mailbox
func (f *TransportFactory) CreateMailbox() core.Mailbox {
	return imapbox.New(f.cfg.GetIMAP(), f.cfg.GetGateway().MaxBodyBytes, f.logger)
}

// CreateSender creates the SMTP sender
func (f *TransportFactory) CreateSender() core.Sender {
	return smtpmail.New(f.cfg.GetSMTP(), f.logger)
}
