package analysis

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/warden-mod/warden/moderation"
)

// EvaluateRules runs every rule independently against the content and returns
// one flag per matching rule. Disabled rules must be filtered out by the
// caller (rulestore.ActiveRules); a rule with a malformed regex is logged and
// skipped rather than failing the whole evaluation.
func EvaluateRules(content string, ct moderation.ContentType, rules []*moderation.Rule, logger *slog.Logger) []moderation.Flag {
	var flags []moderation.Flag
	var tokenSet map[string]bool
	for _, r := range rules {
		if !r.AppliesTo(ct) {
			continue
		}
		matched, evidence := false, ""
		if len(r.Matcher.Keywords) > 0 {
			if tokenSet == nil {
				tokenSet = make(map[string]bool)
				for _, tok := range TokenizeText(content) {
					tokenSet[tok] = true
				}
			}
			for _, kw := range r.Matcher.Keywords {
				if tokenSet[strings.ToLower(kw)] {
					matched, evidence = true, kw
					break
				}
			}
		}
		if !matched && r.Matcher.Pattern != "" {
			re, err := regexp.Compile(r.Matcher.Pattern)
			if err != nil {
				logger.Warn("skipping rule with invalid pattern", "rule", r.ID, "err", err)
				continue
			}
			if loc := re.FindString(content); loc != "" {
				matched, evidence = true, loc
			}
		}
		if matched {
			flags = append(flags, moderation.Flag{
				ID:         uuid.NewString(),
				Type:       "rule",
				Category:   r.Category,
				Severity:   r.Severity,
				Message:    "rule match: " + r.Name,
				Evidence:   evidence,
				Confidence: 0.9,
			})
		}
	}
	return flags
}
