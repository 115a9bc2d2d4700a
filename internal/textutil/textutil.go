// Package textutil holds the text bounding helpers used wherever inbound
// or generated text crosses a size limit.
package textutil

import (
	"unicode/utf8"
)

// Truncate cuts text to at most maxSize bytes without splitting a UTF-8
// sequence. A maxSize of zero or less means no limit.
func Truncate(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 sequences from the string.
func SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}
	return string(result)
}

// Clean truncates and sanitizes in one pass.
func Clean(text string, maxSize int) string {
	return SanitizeUTF8(Truncate(text, maxSize))
}
