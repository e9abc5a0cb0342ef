package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/warden-mod/warden/moderation"
)

// Merge aggregates flags from all sources into one Analysis. Severity is the
// maximum across flags; category is the plurality of flag categories, ties
// broken by first-seen order. Score and action come from the Scorer.
func Merge(contentID string, ct moderation.ContentType, flagSets [][]moderation.Flag, scorer Scorer, started time.Time) *moderation.Analysis {
	var flags []moderation.Flag
	for _, fs := range flagSets {
		flags = append(flags, fs...)
	}

	a := &moderation.Analysis{
		ID:          uuid.NewString(),
		ContentID:   contentID,
		ContentType: ct,
		Severity:    moderation.SeverityLow,
		Action:      moderation.ActionAllow,
		Flags:       flags,
		CreatedAt:   started,
	}

	for _, f := range flags {
		a.Severity = moderation.MaxSeverity(a.Severity, f.Severity)
	}
	a.Category = pluralityCategory(flags)

	a.Score = scorer.Score(flags)
	a.Action = scorer.Action(a)
	a.Confidence = moderation.ConfidenceFor(mergedConfidence(flags))
	a.Suggestions = suggestions(a)
	a.ProcessedAt = time.Now().UTC()
	a.ProcessingTimeMS = a.ProcessedAt.Sub(started).Milliseconds()
	return a
}

// SafeAnalysis is the fail-open result returned when the analysis capability
// is disabled or errors: allow, score zero, no flags. Availability over
// precision; the failure is logged and counted but never surfaced.
func SafeAnalysis(contentID string, ct moderation.ContentType, started time.Time) *moderation.Analysis {
	now := time.Now().UTC()
	return &moderation.Analysis{
		ID:               uuid.NewString(),
		ContentID:        contentID,
		ContentType:      ct,
		Severity:         moderation.SeverityLow,
		Score:            0,
		Action:           moderation.ActionAllow,
		Confidence:       moderation.ConfidenceFor(0),
		Flags:            []moderation.Flag{},
		CreatedAt:        started,
		ProcessedAt:      now,
		ProcessingTimeMS: now.Sub(started).Milliseconds(),
	}
}

// suggestions derives coarse reviewer guidance from the scored outcome.
// Advisory only: nothing downstream branches on these strings.
func suggestions(a *moderation.Analysis) []string {
	if len(a.Flags) == 0 {
		return nil
	}
	var out []string
	switch a.Action {
	case moderation.ActionRemove:
		out = append(out, "remove content pending human confirmation")
	case moderation.ActionReview:
		out = append(out, "queue for human review")
	case moderation.ActionFlag:
		out = append(out, "flag for monitoring")
	}
	if a.Severity == moderation.SeverityHigh || a.Severity == moderation.SeverityCritical {
		out = append(out, "notify trust and safety")
	}
	if a.Category != "" {
		out = append(out, "review "+a.Category+" policy for this content")
	}
	return out
}

// plurality of flag categories, first-seen order breaking ties
func pluralityCategory(flags []moderation.Flag) string {
	counts := make(map[string]int)
	var order []string
	for _, f := range flags {
		if f.Category == "" {
			continue
		}
		if _, seen := counts[f.Category]; !seen {
			order = append(order, f.Category)
		}
		counts[f.Category]++
	}
	best, bestCount := "", 0
	for _, cat := range order {
		if counts[cat] > bestCount {
			best, bestCount = cat, counts[cat]
		}
	}
	return best
}

func mergedConfidence(flags []moderation.Flag) float64 {
	if len(flags) == 0 {
		return 0
	}
	var max float64
	for _, f := range flags {
		if f.Confidence > max {
			max = f.Confidence
		}
	}
	return max
}
