package core

import (
	"time"

	"github.com/calder/reply-gateway/internal/textutil"
)

// Message represents a single inbound email fetched from the mailbox.
// It is immutable after creation and discarded once processed; only the
// audit summary outlives it.
type Message struct {
	UID        uint32
	From       string
	RawFrom    string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// Action is the terminal disposition of a processed message.
type Action string

const (
	ActionReplied          Action = "replied"
	ActionIgnoredAutomated Action = "ignored_automated"
	ActionIgnoredOffTopic  Action = "ignored_offtopic"
	ActionIgnoredDedup     Action = "ignored_dedup"
	ActionReplyFailed      Action = "reply_failed"
)

const (
	auditFromMax    = 64
	auditSubjectMax = 80
)

// AuditEntry is one record in the bounded audit log.
type AuditEntry struct {
	Date           time.Time `json:"date"`
	From           string    `json:"from"`
	SubjectPreview string    `json:"subject"`
	Action         Action    `json:"action"`
	Reason         string    `json:"reason,omitempty"`
}

// NewAuditEntry builds an entry for a message, truncating the sender and
// subject so a single entry stays small on disk. Truncation is rune-safe
// so the entry always stays valid JSON-encodable UTF-8.
func NewAuditEntry(msg *Message, action Action, reason string, now time.Time) AuditEntry {
	return AuditEntry{
		Date:           now,
		From:           textutil.Truncate(msg.From, auditFromMax),
		SubjectPreview: textutil.Truncate(msg.Subject, auditSubjectMax),
		Action:         action,
		Reason:         reason,
	}
}
