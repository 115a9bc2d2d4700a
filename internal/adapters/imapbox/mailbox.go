// Package imapbox implements the mailbox capability over IMAP.
package imapbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"

	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/charset"
	"go.uber.org/zap"
)

func init() {
	// Decode non-UTF-8 envelope fields instead of failing the fetch.
	imap.CharsetReader = charset.Reader
}

// Mailbox is an IMAP implementation of the core.Mailbox interface. The
// connection is kept across calls and re-dialed after an error. go-imap
// clients are not goroutine-safe, so every method runs under the mutex.
type Mailbox struct {
	cfg          config.IMAPConfig
	maxBodyBytes int
	logger       *zap.Logger

	mu     sync.Mutex
	client *client.Client
}

// New creates a new IMAP mailbox. No connection is made until the first
// fetch.
func New(cfg config.IMAPConfig, maxBodyBytes int, logger *zap.Logger) *Mailbox {
	return &Mailbox{
		cfg:          cfg,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// FetchUnseen returns up to max unseen messages. Messages are fetched
// with BODY.PEEK so evaluating a message never marks it seen by itself.
func (m *Mailbox) FetchUnseen(ctx context.Context, max int) ([]*core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureConnected(); err != nil {
		return nil, err
	}

	if _, err := m.client.Select(m.cfg.Mailbox, false); err != nil {
		m.dropConnection()
		return nil, fmt.Errorf("failed to select mailbox %q: %w", m.cfg.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		m.dropConnection()
		return nil, fmt.Errorf("failed to search for unseen messages: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if max > 0 && len(uids) > max {
		uids = uids[:max]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqset, items, ch)
	}()

	var messages []*core.Message
	for raw := range ch {
		msg, err := parseMessage(raw, section, m.maxBodyBytes)
		if err != nil {
			// Malformed messages are not dropped silently: they
			// still enter the pipeline with whatever was decoded.
			m.logger.Warn("Best-effort parse of inbound message",
				zap.Uint32("uid", raw.Uid), zap.Error(err))
		}
		if msg != nil {
			messages = append(messages, msg)
		}
	}

	if err := <-done; err != nil {
		m.dropConnection()
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return messages, nil
}

// MarkSeen flags the message so it is never fetched again by any cycle.
func (m *Mailbox) MarkSeen(ctx context.Context, uid uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureConnected(); err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := m.client.UidStore(seqset, item, flags, nil); err != nil {
		m.dropConnection()
		return fmt.Errorf("failed to mark message %d seen: %w", uid, err)
	}
	return nil
}

// Close logs out from the server.
func (m *Mailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	err := m.client.Logout()
	m.client = nil
	return err
}

func (m *Mailbox) ensureConnected() error {
	if m.client != nil {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	tlsConfig := &tls.Config{ServerName: m.cfg.Host}

	var c *client.Client
	var err error
	switch strings.ToLower(m.cfg.Encryption) {
	case "tls", "ssl":
		c, err = client.DialTLS(addr, tlsConfig)
	case "starttls":
		c, err = client.Dial(addr)
		if err == nil {
			err = c.StartTLS(tlsConfig)
		}
	default:
		c, err = client.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server %s: %w", addr, err)
	}

	c.Timeout = m.cfg.Timeout

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		c.Logout()
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	m.client = c
	m.logger.Debug("Connected to IMAP server", zap.String("addr", addr))
	return nil
}

func (m *Mailbox) dropConnection() {
	if m.client != nil {
		m.client.Logout()
		m.client = nil
	}
}
