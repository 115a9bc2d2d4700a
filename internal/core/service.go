package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/calder/reply-gateway/internal/classifier"
	"github.com/calder/reply-gateway/internal/policy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServiceConfig carries the orchestrator settings.
type ServiceConfig struct {
	SelfAddress   string
	BatchSize     int
	Workers       int
	SubjectPrefix string
	SendTimeout   time.Duration
	DryRun        bool
}

// Service is the gateway orchestrator. It owns the gate pipeline for each
// message: classifier, topic filter, dedup check, composition, send. The
// dedup store and audit log are the only shared mutable state; the dedup
// check-then-mark runs inside a per-fingerprint critical section so two
// messages from one sender can never both pass the gate.
type Service struct {
	mailbox  Mailbox
	sender   Sender
	composer ReplyComposer
	dedup    DedupStore
	audit    AuditSink
	policy   *policy.Table
	cfg      ServiceConfig
	logger   *zap.Logger
	locks    senderLocks
	now      func() time.Time
}

// CycleStats summarizes one polling cycle for the log.
type CycleStats struct {
	Fetched int
	Counts  map[Action]int
}

// NewService creates the gateway orchestrator.
func NewService(
	mailbox Mailbox,
	sender Sender,
	composer ReplyComposer,
	dedup DedupStore,
	audit AuditSink,
	tbl *policy.Table,
	cfg ServiceConfig,
	logger *zap.Logger,
) *Service {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Service{
		mailbox:  mailbox,
		sender:   sender,
		composer: composer,
		dedup:    dedup,
		audit:    audit,
		policy:   tbl,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RunCycle fetches one batch of unseen messages and processes each to a
// terminal action. Every fetched message is marked seen regardless of
// outcome, so the poller makes monotonic progress even when replies fail.
func (s *Service) RunCycle(ctx context.Context) (CycleStats, error) {
	stats := CycleStats{Counts: make(map[Action]int)}

	messages, err := s.fetchWithRetry(ctx)
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(messages)
	if len(messages) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Workers)

	for _, msg := range messages {
		msg := msg
		g.Go(func() error {
			action := s.ProcessMessage(ctx, msg)

			mu.Lock()
			stats.Counts[action]++
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	// Marking runs after the pool drains, one message at a time: the
	// mailbox client multiplexes a single connection and must not see
	// interleaved commands from the workers.
	for _, msg := range messages {
		if err := s.mailbox.MarkSeen(ctx, msg.UID); err != nil {
			s.logger.Warn("Failed to mark message seen",
				zap.Uint32("uid", msg.UID), zap.Error(err))
		}
	}

	s.logger.Info("Cycle complete",
		zap.Int("fetched", stats.Fetched),
		zap.Int("replied", stats.Counts[ActionReplied]),
		zap.Int("ignored_automated", stats.Counts[ActionIgnoredAutomated]),
		zap.Int("ignored_offtopic", stats.Counts[ActionIgnoredOffTopic]),
		zap.Int("ignored_dedup", stats.Counts[ActionIgnoredDedup]),
		zap.Int("reply_failed", stats.Counts[ActionReplyFailed]))

	return stats, nil
}

// ProcessMessage runs the gate pipeline for one message and returns its
// terminal action. Exactly one audit entry is written per message.
func (s *Service) ProcessMessage(ctx context.Context, msg *Message) Action {
	now := s.now()

	cls := classifier.Classify(msg.From, msg.Subject, msg.Body, s.cfg.SelfAddress, s.policy)
	if cls.Automated {
		s.logger.Debug("Ignoring automated sender",
			zap.String("from", msg.From), zap.String("reason", cls.Reason))
		s.audit.Record(NewAuditEntry(msg, ActionIgnoredAutomated, cls.Reason, now))
		return ActionIgnoredAutomated
	}

	if !classifier.IsOnTopic(msg.Subject, msg.Body, s.policy.Topics) {
		s.audit.Record(NewAuditEntry(msg, ActionIgnoredOffTopic, "", now))
		return ActionIgnoredOffTopic
	}

	fp := Fingerprint(msg.From)
	unlock := s.locks.acquire(fp)
	defer unlock()

	recent, err := s.dedup.WasRepliedRecently(ctx, fp, now)
	if err != nil {
		// A broken store must not wedge the gateway; proceed as if
		// the sender is new and let the mark fail loudly if it will.
		s.logger.Warn("Dedup lookup failed", zap.String("fingerprint", fp), zap.Error(err))
	}
	if recent {
		s.audit.Record(NewAuditEntry(msg, ActionIgnoredDedup, "", now))
		return ActionIgnoredDedup
	}

	reply, usedFallback := s.composer.Compose(ctx, msg)
	reason := ""
	if usedFallback {
		reason = "fallback"
	}

	if s.cfg.DryRun {
		s.logger.Info("Dry run, skipping send",
			zap.String("to", msg.From), zap.Bool("fallback", usedFallback))
		s.audit.Record(NewAuditEntry(msg, ActionReplied, "dry run", now))
		return ActionReplied
	}

	if err := s.sendWithRetry(ctx, msg.From, s.replySubject(msg.Subject), reply); err != nil {
		s.logger.Error("Failed to send reply",
			zap.String("to", msg.From), zap.Error(err))
		// The dedup store is deliberately not marked: the sender
		// stays eligible for a reply on a later cycle.
		s.audit.Record(NewAuditEntry(msg, ActionReplyFailed, reason, now))
		return ActionReplyFailed
	}

	if err := s.dedup.MarkReplied(ctx, fp, now); err != nil {
		s.logger.Error("Failed to record reply in dedup store",
			zap.String("fingerprint", fp), zap.Error(err))
	}

	s.logger.Info("Replied",
		zap.String("to", msg.From),
		zap.String("subject", msg.Subject),
		zap.Bool("fallback", usedFallback))
	s.audit.Record(NewAuditEntry(msg, ActionReplied, reason, now))
	return ActionReplied
}

func (s *Service) fetchWithRetry(ctx context.Context) ([]*Message, error) {
	messages, err := s.mailbox.FetchUnseen(ctx, s.cfg.BatchSize)
	if err == nil {
		return messages, nil
	}
	s.logger.Warn("Fetch failed, retrying once", zap.Error(err))
	return s.mailbox.FetchUnseen(ctx, s.cfg.BatchSize)
}

func (s *Service) sendWithRetry(ctx context.Context, to, subject, body string) error {
	err := s.sendOnce(ctx, to, subject, body)
	if err == nil || ctx.Err() != nil {
		return err
	}
	s.logger.Warn("Send failed, retrying once", zap.String("to", to), zap.Error(err))
	return s.sendOnce(ctx, to, subject, body)
}

func (s *Service) sendOnce(ctx context.Context, to, subject, body string) error {
	if s.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SendTimeout)
		defer cancel()
	}
	return s.sender.Send(ctx, to, subject, body)
}

func (s *Service) replySubject(subject string) string {
	prefix := s.cfg.SubjectPrefix
	if prefix == "" || strings.HasPrefix(strings.ToLower(subject), strings.ToLower(prefix)) {
		return subject
	}
	return prefix + subject
}

// senderLocks serializes processing per sender fingerprint. Locks are
// refcounted and dropped from the map when the last holder releases, so
// the map only ever holds fingerprints currently in flight.
type senderLocks struct {
	mu    sync.Mutex
	locks map[string]*senderLock
}

type senderLock struct {
	sync.Mutex
	refs int
}

func (s *senderLocks) acquire(fp string) func() {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*senderLock)
	}
	l, ok := s.locks[fp]
	if !ok {
		l = &senderLock{}
		s.locks[fp] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, fp)
		}
		s.mu.Unlock()
	}
}

func (s *senderLocks) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
