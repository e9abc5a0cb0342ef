package analysis

import (
	"github.com/warden-mod/warden/moderation"
)

// WeightedScorer is the default scoring policy: each flag contributes its
// severity weight scaled by its confidence, combined as complementary
// probabilities so stacked weak signals approach but never exceed 1.
type WeightedScorer struct {
	// Action thresholds over the combined score. Zero values fall back to
	// the defaults below.
	RemoveThreshold float64
	ReviewThreshold float64
	FlagThreshold   float64
}

func severityWeight(s moderation.Severity) float64 {
	switch s {
	case moderation.SeverityCritical:
		return 1.0
	case moderation.SeverityHigh:
		return 0.75
	case moderation.SeverityMedium:
		return 0.5
	case moderation.SeverityLow:
		return 0.25
	}
	return 0
}

func (ws *WeightedScorer) Score(flags []moderation.Flag) float64 {
	pass := 1.0
	for _, f := range flags {
		pass *= 1.0 - severityWeight(f.Severity)*f.Confidence
	}
	return 1.0 - pass
}

func (ws *WeightedScorer) Action(a *moderation.Analysis) moderation.Action {
	remove, review, flag := ws.RemoveThreshold, ws.ReviewThreshold, ws.FlagThreshold
	if remove == 0 {
		remove = 0.9
	}
	if review == 0 {
		review = 0.7
	}
	if flag == 0 {
		flag = 0.4
	}
	switch {
	case a.Severity == moderation.SeverityCritical || a.Score >= remove:
		return moderation.ActionRemove
	case a.Score >= review:
		return moderation.ActionReview
	case a.Score >= flag:
		return moderation.ActionFlag
	default:
		return moderation.ActionAllow
	}
}
