package imapbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/calder/reply-gateway/internal/core"
	"github.com/calder/reply-gateway/internal/textutil"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/mail"
)

// parseMessage converts a fetched IMAP message into a core.Message.
// Decoding is best-effort and the message is always non-nil: even with a
// missing envelope the UID must flow through the pipeline so the message
// gets audited and marked seen instead of being refetched forever. Any
// error encountered along the way is returned for the caller to log.
func parseMessage(raw *imap.Message, section *imap.BodySectionName, maxBodyBytes int) (*core.Message, error) {
	if raw.Envelope == nil || len(raw.Envelope.From) == 0 {
		return &core.Message{UID: raw.Uid, ReceivedAt: time.Now()},
			fmt.Errorf("message %d has no envelope sender", raw.Uid)
	}

	from := raw.Envelope.From[0]
	msg := &core.Message{
		UID:        raw.Uid,
		From:       from.Address(),
		RawFrom:    formatAddress(from),
		Subject:    raw.Envelope.Subject,
		ReceivedAt: raw.Envelope.Date,
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	literal := raw.GetBody(section)
	if literal == nil {
		return msg, fmt.Errorf("message %d has no body section", raw.Uid)
	}

	data, err := io.ReadAll(literal)
	if err != nil {
		return msg, fmt.Errorf("failed to read message %d body: %w", raw.Uid, err)
	}

	body, err := extractText(data)
	msg.Body = textutil.Clean(body, maxBodyBytes)
	return msg, err
}

// extractText pulls readable text out of a raw RFC 822 message: the
// first text/plain inline part, then text/html, then the undecoded bytes
// past the headers as a last resort.
func extractText(data []byte) (string, error) {
	mr, err := mail.CreateReader(bytes.NewReader(data))
	if err != nil {
		return rawBody(data), fmt.Errorf("failed to parse MIME structure: %w", err)
	}

	var plain, html string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		content, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.Contains(contentType, "text/plain") && plain == "":
			plain = string(content)
		case strings.Contains(contentType, "text/html") && html == "":
			html = string(content)
		}
	}

	if plain != "" {
		return plain, nil
	}
	if html != "" {
		return html, nil
	}
	return rawBody(data), nil
}

// rawBody returns everything after the header block, or the whole input
// when no blank line is found.
func rawBody(data []byte) string {
	if i := bytes.Index(data, []byte("\r\n\r\n")); i >= 0 {
		return string(data[i+4:])
	}
	if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		return string(data[i+2:])
	}
	return string(data)
}

func formatAddress(addr *imap.Address) string {
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, addr.Address())
	}
	return addr.Address()
}
