package engine

import (
	"context"
	"log/slog"

	"github.com/warden-mod/warden/moderation"
	"github.com/warden-mod/warden/moderation/analysis"
	"github.com/warden-mod/warden/moderation/auditlog"
	"github.com/warden-mod/warden/moderation/notifier"
	"github.com/warden-mod/warden/moderation/rulestore"
	"github.com/warden-mod/warden/moderation/store"
)

// EngineTestFixture builds an engine backed by in-memory stores, a capture
// notifier and capture audit log, the built-in keyword provider, and one
// active rule flagging the token "slur".
func EngineTestFixture() (*Engine, *notifier.CaptureNotifier, *auditlog.CaptureAudit) {
	logger := slog.Default()
	rules := rulestore.NewMemRuleStore()
	_ = rules.PutRule(context.Background(), &moderation.Rule{
		ID:       "rule-slur",
		Name:     "slur keyword",
		Category: "hate",
		Severity: moderation.SeverityHigh,
		Action:   moderation.ActionReview,
		Enabled:  true,
		Matcher:  moderation.RuleMatcher{Keywords: []string{"slur"}},
	})

	eng := New(logger, store.NewMemstore(), rules, DefaultConfig())
	eng.AddProvider(&analysis.KeywordAnalyzer{
		Categories: map[string]analysis.KeywordCategory{
			"spam": {Keywords: []string{"buynow", "freemoney"}, Severity: moderation.SeverityMedium},
		},
	})

	capture := &notifier.CaptureNotifier{}
	eng.Notifier.Notifier = capture
	eng.SyncNotify = true
	audit := &auditlog.CaptureAudit{}
	eng.Audit = audit
	return eng, capture, audit
}
