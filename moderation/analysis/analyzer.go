// Package analysis evaluates submitted content: pluggable automated
// providers plus independent rule evaluation, merged into a single scored
// Analysis. The merger only aggregates; scoring policy is a pluggable Scorer
// so deployments can swap it without touching aggregation.
package analysis

import (
	"context"

	"github.com/warden-mod/warden/moderation"
)

// Analyzer is the pluggable content-analysis capability. Implementations may
// call out to external services; callers bound them with a context deadline
// and treat failures as recoverable (fail-open).
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, content string, ct moderation.ContentType) ([]moderation.Flag, error)
}

// Scorer derives the final score and action from a merged flag set. The
// merger performs no scoring arithmetic itself.
type Scorer interface {
	Score(flags []moderation.Flag) float64
	Action(a *moderation.Analysis) moderation.Action
}
