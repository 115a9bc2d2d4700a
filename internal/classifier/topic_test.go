package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOnTopic(t *testing.T) {
	topics := []string{"reply-gateway", "mail triage", "fork"}

	t.Run("match in subject", func(t *testing.T) {
		assert.True(t, IsOnTopic("trying out reply-gateway", "hi there", topics))
	})

	t.Run("match in body", func(t *testing.T) {
		assert.True(t, IsOnTopic("quick question", "may I fork your repository?", topics))
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.True(t, IsOnTopic("Mail Triage setup", "", topics))
	})

	t.Run("no match", func(t *testing.T) {
		assert.False(t, IsOnTopic("lunch on friday?", "see you at noon", topics))
	})

	t.Run("empty topic list matches nothing", func(t *testing.T) {
		assert.False(t, IsOnTopic("trying out reply-gateway", "fork", nil))
	})

	t.Run("substring match crosses word boundaries", func(t *testing.T) {
		// Deliberate: "fork" inside "forklift" still counts.
		assert.True(t, IsOnTopic("forklift certification", "", topics))
	})
}
