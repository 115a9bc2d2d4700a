// Package policy holds the classification policy table: the domain,
// prefix, phrase, and topic lists the classifier matches against. The
// table is data loaded at startup, so operators extend it through
// configuration instead of a redeploy.
package policy

import (
	"strings"

	"github.com/calder/reply-gateway/internal/config"
	"go.uber.org/zap"
)

// Table is the loaded, normalized policy. All entries are lowercase.
type Table struct {
	BlockedDomains     []string
	AutoPrefixes       []string
	SubjectPhrases     []string
	BodyPhrases        []string
	AutomationKeywords []string
	Topics             []string
	ClassifyBodyBytes  int
}

// FromConfig builds the policy table, overlaying any non-empty config list
// over the shipped defaults.
func FromConfig(cfg *config.Config, logger *zap.Logger) *Table {
	t := Defaults()

	t.BlockedDomains = overlay(t.BlockedDomains, cfg.GetStringSlice("policy.blocked_domains"))
	t.AutoPrefixes = overlay(t.AutoPrefixes, cfg.GetStringSlice("policy.auto_prefixes"))
	t.SubjectPhrases = overlay(t.SubjectPhrases, cfg.GetStringSlice("policy.subject_phrases"))
	t.BodyPhrases = overlay(t.BodyPhrases, cfg.GetStringSlice("policy.body_phrases"))
	t.AutomationKeywords = overlay(t.AutomationKeywords, cfg.GetStringSlice("policy.automation_keywords"))
	t.Topics = normalize(cfg.GetStringSlice("policy.topics"))

	if n := cfg.GetInt("policy.classify_body_bytes"); n > 0 {
		t.ClassifyBodyBytes = n
	}

	logger.Info("Loaded policy table",
		zap.Int("blocked_domains", len(t.BlockedDomains)),
		zap.Int("auto_prefixes", len(t.AutoPrefixes)),
		zap.Int("subject_phrases", len(t.SubjectPhrases)),
		zap.Int("body_phrases", len(t.BodyPhrases)),
		zap.Strings("topics", t.Topics))
	if len(t.Topics) == 0 {
		logger.Warn("No topic keywords configured; every message will be off-topic")
	}

	return t
}

// overlay replaces defaults with the configured list when one is given.
func overlay(defaults, configured []string) []string {
	if len(configured) == 0 {
		return defaults
	}
	return normalize(configured)
}

func normalize(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
