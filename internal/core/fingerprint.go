package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintBytes is the truncated digest length: 96 bits is plenty for a
// keyspace of distinct correspondents and keeps the raw address out of the
// dedup store.
const fingerprintBytes = 12

// Fingerprint derives the stable dedup key for a sender address.
// The address is lowercased and trimmed first so casing and stray
// whitespace never split one sender across records.
func Fingerprint(addr string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(addr))))
	return hex.EncodeToString(sum[:fingerprintBytes])
}
