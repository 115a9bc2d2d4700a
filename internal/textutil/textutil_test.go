package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "hello", Truncate("hello", 10))
	})

	t.Run("cuts to byte limit", func(t *testing.T) {
		assert.Equal(t, "hello", Truncate("hello world", 5))
	})

	t.Run("does not split a multibyte rune", func(t *testing.T) {
		// "héllo": é is two bytes, a 2-byte cut would land mid-rune.
		out := Truncate("héllo", 2)
		assert.True(t, utf8.ValidString(out))
		assert.Equal(t, "h", out)
	})

	t.Run("zero limit means unlimited", func(t *testing.T) {
		long := strings.Repeat("x", 10000)
		assert.Equal(t, long, Truncate(long, 0))
	})
}

func TestSanitizeUTF8(t *testing.T) {
	t.Run("valid text untouched", func(t *testing.T) {
		assert.Equal(t, "héllo wörld", SanitizeUTF8("héllo wörld"))
	})

	t.Run("invalid bytes dropped", func(t *testing.T) {
		out := SanitizeUTF8("he\xffllo")
		assert.True(t, utf8.ValidString(out))
		assert.Equal(t, "hello", out)
	})
}

func TestClean(t *testing.T) {
	out := Clean("héllo wörld"+"\xff", 12)
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), 12)
}
