package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calder/reply-gateway/internal/adapters/dedup"
	"github.com/calder/reply-gateway/internal/composer"
	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"github.com/calder/reply-gateway/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMailbox struct {
	mu          sync.Mutex
	messages    []*core.Message
	failFetches int
	seen        []uint32

	marking    int32
	overlapped int32
}

func (m *fakeMailbox) FetchUnseen(_ context.Context, max int) ([]*core.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFetches > 0 {
		m.failFetches--
		return nil, errors.New("imap connection reset")
	}
	batch := m.messages
	if len(batch) > max {
		batch = batch[:max]
	}
	m.messages = m.messages[len(batch):]
	return batch, nil
}

func (m *fakeMailbox) MarkSeen(_ context.Context, uid uint32) error {
	// A real IMAP client multiplexes one connection and is not safe for
	// concurrent commands; flag any overlapping call.
	if atomic.AddInt32(&m.marking, 1) > 1 {
		atomic.StoreInt32(&m.overlapped, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&m.marking, -1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, uid)
	return nil
}

func (m *fakeMailbox) Close() error { return nil }

func (m *fakeMailbox) seenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeSender struct {
	mu       sync.Mutex
	failures int
	sent     []sentMail
}

func (s *fakeSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unreachable")
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (s *fakeSender) sentMails() []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentMail, len(s.sent))
	copy(out, s.sent)
	return out
}

type stubComposer struct {
	text     string
	fallback bool
}

func (c *stubComposer) Compose(context.Context, *core.Message) (string, bool) {
	return c.text, c.fallback
}

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) Generate(context.Context, string, int) (string, error) {
	return g.text, g.err
}

type recordSink struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

func (s *recordSink) Record(entry core.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *recordSink) byAction(action core.Action) []core.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AuditEntry
	for _, e := range s.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	mailbox  *fakeMailbox
	sender   *fakeSender
	dedup    *dedup.MemoryStore
	audit    *recordSink
	service  *core.Service
	composer *stubComposer
}

func newFixture(t *testing.T, messages ...*core.Message) *fixture {
	t.Helper()

	tbl := policy.Defaults()
	tbl.Topics = []string{"project", "fork"}

	f := &fixture{
		mailbox:  &fakeMailbox{messages: messages},
		sender:   &fakeSender{},
		dedup:    dedup.NewMemoryStore(48*time.Hour, 168*time.Hour),
		audit:    &recordSink{},
		composer: &stubComposer{text: "Thanks for writing in!"},
	}
	f.service = core.NewService(
		f.mailbox,
		f.sender,
		f.composer,
		f.dedup,
		f.audit,
		tbl,
		core.ServiceConfig{
			SelfAddress:   "outreach@ourproject.dev",
			BatchSize:     30,
			Workers:       4,
			SubjectPrefix: "Re: ",
		},
		zap.NewNop(),
	)
	return f
}

func message(uid uint32, from, subject, body string) *core.Message {
	return &core.Message{
		UID:        uid,
		From:       from,
		RawFrom:    from,
		Subject:    subject,
		Body:       body,
		ReceivedAt: time.Now(),
	}
}

func TestProcessMessageReplies(t *testing.T) {
	f := newFixture(t)
	msg := message(1, "alice@example.com", "question about your project", "I'd love to fork it")

	action := f.service.ProcessMessage(context.Background(), msg)
	assert.Equal(t, core.ActionReplied, action)

	sent := f.sender.sentMails()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].to)
	assert.Equal(t, "Re: question about your project", sent[0].subject)
	assert.Equal(t, "Thanks for writing in!", sent[0].body)

	recent, err := f.dedup.WasRepliedRecently(context.Background(), core.Fingerprint("alice@example.com"), time.Now())
	require.NoError(t, err)
	assert.True(t, recent)

	entries := f.audit.byAction(core.ActionReplied)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice@example.com", entries[0].From)
	assert.Empty(t, entries[0].Reason)
}

func TestProcessMessageIgnoresAutomated(t *testing.T) {
	f := newFixture(t)
	msg := message(1, "notifications@github.com", "Run failed: build project", "workflow run failed")

	action := f.service.ProcessMessage(context.Background(), msg)
	assert.Equal(t, core.ActionIgnoredAutomated, action)
	assert.Empty(t, f.sender.sentMails())

	entries := f.audit.byAction(core.ActionIgnoredAutomated)
	require.Len(t, entries, 1)
	assert.Equal(t, "blocked domain", entries[0].Reason)

	// An ignored sender must stay eligible for a future reply.
	recent, err := f.dedup.WasRepliedRecently(context.Background(), core.Fingerprint(msg.From), time.Now())
	require.NoError(t, err)
	assert.False(t, recent)
}

func TestProcessMessageIgnoresOffTopic(t *testing.T) {
	f := newFixture(t)
	msg := message(1, "bob@example.com", "lunch on friday?", "see you at noon")

	action := f.service.ProcessMessage(context.Background(), msg)
	assert.Equal(t, core.ActionIgnoredOffTopic, action)
	assert.Empty(t, f.sender.sentMails())
}

func TestProcessMessageDedupBlocksSecondReply(t *testing.T) {
	f := newFixture(t)
	first := message(1, "alice@example.com", "question about your project", "how do I fork it?")
	second := message(2, "Alice@Example.com", "another project question", "me again")

	assert.Equal(t, core.ActionReplied, f.service.ProcessMessage(context.Background(), first))
	assert.Equal(t, core.ActionIgnoredDedup, f.service.ProcessMessage(context.Background(), second))

	assert.Len(t, f.sender.sentMails(), 1)
	assert.Len(t, f.audit.byAction(core.ActionIgnoredDedup), 1)
}

func TestProcessMessageSendFailureLeavesSenderEligible(t *testing.T) {
	f := newFixture(t)
	f.sender.failures = 2 // first attempt and its retry both fail
	msg := message(1, "alice@example.com", "project question", "hello")

	action := f.service.ProcessMessage(context.Background(), msg)
	assert.Equal(t, core.ActionReplyFailed, action)

	recent, err := f.dedup.WasRepliedRecently(context.Background(), core.Fingerprint(msg.From), time.Now())
	require.NoError(t, err)
	assert.False(t, recent, "failed sends must not consume the dedup window")

	// Next attempt goes through and gets recorded.
	action = f.service.ProcessMessage(context.Background(), message(2, "alice@example.com", "project question", "hello again"))
	assert.Equal(t, core.ActionReplied, action)
	assert.Len(t, f.sender.sentMails(), 1)
}

func TestProcessMessageSendRetriesOnce(t *testing.T) {
	f := newFixture(t)
	f.sender.failures = 1
	msg := message(1, "alice@example.com", "project question", "hello")

	action := f.service.ProcessMessage(context.Background(), msg)
	assert.Equal(t, core.ActionReplied, action)
	assert.Len(t, f.sender.sentMails(), 1)
}

func TestProcessMessageFallbackReply(t *testing.T) {
	f := newFixture(t)

	cmp, err := composer.New(&stubGenerator{err: errors.New("model overloaded")}, config.ComposeConfig{
		MaxTokens:     400,
		MaxReplyBytes: 4000,
		ProjectName:   "reply-gateway",
		ProjectLink:   "https://example.com/reply-gateway",
		Signature:     "The maintainers",
	}, zap.NewNop())
	require.NoError(t, err)

	tbl := policy.Defaults()
	tbl.Topics = []string{"project"}
	service := core.NewService(f.mailbox, f.sender, cmp, f.dedup, f.audit, tbl, core.ServiceConfig{
		SelfAddress:   "outreach@ourproject.dev",
		BatchSize:     30,
		Workers:       1,
		SubjectPrefix: "Re: ",
	}, zap.NewNop())

	msg := message(1, "alice@example.com", "project question", "hello")
	action := service.ProcessMessage(context.Background(), msg)
	assert.Equal(t, core.ActionReplied, action)

	sent := f.sender.sentMails()
	require.Len(t, sent, 1)
	assert.Equal(t, cmp.Fallback(), sent[0].body)

	entries := f.audit.byAction(core.ActionReplied)
	require.Len(t, entries, 1)
	assert.Equal(t, "fallback", entries[0].Reason)

	recent, err := f.dedup.WasRepliedRecently(context.Background(), core.Fingerprint(msg.From), time.Now())
	require.NoError(t, err)
	assert.True(t, recent, "a fallback reply still counts against the dedup window")
}

func TestProcessMessageDryRunSkipsSend(t *testing.T) {
	f := newFixture(t)
	tbl := policy.Defaults()
	tbl.Topics = []string{"project"}
	service := core.NewService(f.mailbox, f.sender, f.composer, f.dedup, f.audit, tbl, core.ServiceConfig{
		SelfAddress:   "outreach@ourproject.dev",
		BatchSize:     30,
		Workers:       1,
		SubjectPrefix: "Re: ",
		DryRun:        true,
	}, zap.NewNop())

	action := service.ProcessMessage(context.Background(), message(1, "alice@example.com", "project question", "hi"))
	assert.Equal(t, core.ActionReplied, action)
	assert.Empty(t, f.sender.sentMails())

	entries := f.audit.byAction(core.ActionReplied)
	require.Len(t, entries, 1)
	assert.Equal(t, "dry run", entries[0].Reason)
}

func TestProcessMessageUndecodableSender(t *testing.T) {
	// A message the mailbox could not decode arrives with only a UID;
	// it must still leave the pipeline with an audit entry.
	f := newFixture(t)
	msg := &core.Message{UID: 42, ReceivedAt: time.Now()}

	action := f.service.ProcessMessage(context.Background(), msg)
	assert.Equal(t, core.ActionIgnoredOffTopic, action)
	assert.Len(t, f.audit.byAction(core.ActionIgnoredOffTopic), 1)
	assert.Empty(t, f.sender.sentMails())
}

func TestRunCycleMarksEverythingSeen(t *testing.T) {
	f := newFixture(t,
		message(1, "alice@example.com", "project question", "hi"),
		message(2, "noreply@example.com", "receipt", ""),
		message(3, "bob@example.com", "lunch?", "noon"),
	)
	f.sender.failures = 2 // alice's reply fails both attempts

	stats, err := f.service.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 1, stats.Counts[core.ActionReplyFailed])
	assert.Equal(t, 1, stats.Counts[core.ActionIgnoredAutomated])
	assert.Equal(t, 1, stats.Counts[core.ActionIgnoredOffTopic])

	assert.Equal(t, 3, f.mailbox.seenCount(), "every fetched message is marked seen regardless of outcome")
}

func TestRunCycleMarksSeenOneAtATime(t *testing.T) {
	var msgs []*core.Message
	for i := 1; i <= 8; i++ {
		msgs = append(msgs, message(uint32(i), fmt.Sprintf("sender-%d@example.com", i), "project question", "hi"))
	}
	f := newFixture(t, msgs...)

	stats, err := f.service.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, stats.Counts[core.ActionReplied])
	assert.Equal(t, 8, f.mailbox.seenCount())
	assert.Zero(t, atomic.LoadInt32(&f.mailbox.overlapped),
		"mark-seen commands must never interleave on the mailbox connection")
}

func TestRunCycleSameSenderInOneBatch(t *testing.T) {
	// Two messages from one address in the same batch race through the
	// worker pool; exactly one reply must come out the other side.
	f := newFixture(t,
		message(1, "alice@example.com", "project question", "hi"),
		message(2, "alice@example.com", "project question again", "hi again"),
	)

	stats, err := f.service.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Counts[core.ActionReplied])
	assert.Equal(t, 1, stats.Counts[core.ActionIgnoredDedup])
	assert.Len(t, f.sender.sentMails(), 1)
}

func TestRunCycleFetchRetry(t *testing.T) {
	f := newFixture(t, message(1, "alice@example.com", "project question", "hi"))
	f.mailbox.failFetches = 1

	stats, err := f.service.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fetched)
}

func TestRunCycleFetchFailure(t *testing.T) {
	f := newFixture(t)
	f.mailbox.failFetches = 2

	_, err := f.service.RunCycle(context.Background())
	assert.Error(t, err)
}

func TestRunCycleRespectsBatchSize(t *testing.T) {
	var msgs []*core.Message
	for i := 1; i <= 40; i++ {
		msgs = append(msgs, message(uint32(i), "bob@example.com", "lunch?", "noon"))
	}
	f := newFixture(t, msgs...)

	stats, err := f.service.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, stats.Fetched)
}

func TestReplySubjectAvoidsDoublePrefix(t *testing.T) {
	f := newFixture(t)
	msg := message(1, "alice@example.com", "Re: project question", "hi")

	action := f.service.ProcessMessage(context.Background(), msg)
	require.Equal(t, core.ActionReplied, action)

	sent := f.sender.sentMails()
	require.Len(t, sent, 1)
	assert.Equal(t, "Re: project question", sent[0].subject)
}
