package core

import (
	"context"
	"time"
)

// Mailbox defines the interface for the inbound mail capability
type Mailbox interface {
	// FetchUnseen returns up to max unseen messages from the mailbox
	FetchUnseen(ctx context.Context, max int) ([]*Message, error)

	// MarkSeen flags a message as seen so it is never fetched again
	MarkSeen(ctx context.Context, uid uint32) error

	// Close releases the mailbox connection
	Close() error
}

// Sender defines the interface for the outbound mail capability
type Sender interface {
	// Send delivers a plain-text message to a single recipient
	Send(ctx context.Context, to, subject, body string) error
}

// Generator defines the interface for the text-generation capability.
// A nil Generator is legal: the composer then always uses its fallback.
type Generator interface {
	// Generate produces text for a prompt, bounded by maxTokens
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// DedupStore defines the interface for the per-sender reply dedup records
type DedupStore interface {
	// WasRepliedRecently reports whether a reply was sent to the
	// fingerprint within the dedup window
	WasRepliedRecently(ctx context.Context, fingerprint string, now time.Time) (bool, error)

	// MarkReplied upserts the record for the fingerprint and prunes
	// records older than the retention window
	MarkReplied(ctx context.Context, fingerprint string, now time.Time) error

	// Close releases any backing resources
	Close() error
}

// AuditSink records the disposition of every processed message
type AuditSink interface {
	Record(entry AuditEntry)
}

// ReplyComposer produces the reply text for a qualifying message.
// It never fails: when generation is unavailable the returned text is the
// static fallback and usedFallback is true.
type ReplyComposer interface {
	Compose(ctx context.Context, msg *Message) (text string, usedFallback bool)
}
