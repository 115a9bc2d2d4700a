package classifier

import "strings"

// IsOnTopic reports whether any configured topic keyword appears in the
// subject or body. Matching is a case-insensitive substring check with no
// word-boundary requirement, so a short keyword can match inside an
// unrelated word; keep topic keywords reasonably specific. An empty topic
// list matches nothing.
func IsOnTopic(subject, body string, topics []string) bool {
	if len(topics) == 0 {
		return false
	}
	haystack := strings.ToLower(subject + " " + body)
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(topic)) {
			return true
		}
	}
	return false
}
