// Package classifier decides whether an inbound message comes from an
// automated sender. Classification is a pure function of the message and
// the policy table: no side effects, safe to call concurrently.
package classifier

import (
	"strings"

	"github.com/calder/reply-gateway/internal/policy"
)

// Reason tags for automated classifications.
const (
	ReasonSelfEmail      = "self-email"
	ReasonBlockedDomain  = "blocked domain"
	ReasonAutoPrefix     = "auto prefix"
	ReasonSubjectPattern = "subject pattern"
	ReasonBodyPattern    = "body pattern"
	ReasonEncodedSubject = "encoded subject"
)

// Result is the outcome of classifying a sender.
type Result struct {
	Automated bool
	Reason    string
}

// Classify runs the ordered sender checks and short-circuits on the first
// match. The order is fixed: self-mail, domain blocklist, local-part
// prefix blocklist, subject phrases, body phrases (bounded prefix of the
// body), encoded-word subject heuristic.
func Classify(fromAddr, subject, body, selfAddress string, tbl *policy.Table) Result {
	addr := strings.ToLower(strings.TrimSpace(fromAddr))
	lowerSubject := strings.ToLower(subject)

	if selfAddress != "" && strings.Contains(addr, strings.ToLower(selfAddress)) {
		return Result{Automated: true, Reason: ReasonSelfEmail}
	}

	local, domain := splitAddress(addr)

	for _, blocked := range tbl.BlockedDomains {
		if domain == blocked || strings.HasSuffix(domain, "."+blocked) {
			return Result{Automated: true, Reason: ReasonBlockedDomain}
		}
	}

	for _, prefix := range tbl.AutoPrefixes {
		if strings.HasPrefix(local, prefix) {
			return Result{Automated: true, Reason: ReasonAutoPrefix}
		}
	}

	for _, phrase := range tbl.SubjectPhrases {
		if strings.Contains(lowerSubject, phrase) {
			return Result{Automated: true, Reason: ReasonSubjectPattern}
		}
	}

	lowerBody := strings.ToLower(clipBytes(body, tbl.ClassifyBodyBytes))
	for _, phrase := range tbl.BodyPhrases {
		if strings.Contains(lowerBody, phrase) {
			return Result{Automated: true, Reason: ReasonBodyPattern}
		}
	}

	// Subjects still wearing a MIME encoded-word prefix after decoding
	// are almost always machine-generated; require a known automation
	// keyword as well so an exotic human charset alone does not trip it.
	if strings.HasPrefix(subject, "=?") && containsAny(lowerSubject, tbl.AutomationKeywords) {
		return Result{Automated: true, Reason: ReasonEncodedSubject}
	}

	return Result{}
}

// splitAddress returns the lowercased local part and domain of an
// address, tolerating malformed input: with no "@" the whole string is
// the local part and the domain is empty.
func splitAddress(addr string) (local, domain string) {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return addr, ""
	}
	return addr[:at], addr[at+1:]
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clipBytes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
