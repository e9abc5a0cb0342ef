package analysis

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-mod/warden/moderation"
)

func TestTokenizeText(t *testing.T) {
	assert := assert.New(t)
	assert.Equal([]string{"buy", "now", "free", "money"}, TokenizeText("Buy NOW!!! free-money."))
	assert.Empty(TokenizeText("...!!!"))
	assert.Equal([]string{"héllo", "wörld"}, TokenizeText("Héllo, Wörld"))
}

func TestKeywordAnalyzer(t *testing.T) {
	assert := assert.New(t)
	ka := &KeywordAnalyzer{
		Categories: map[string]KeywordCategory{
			"spam": {Keywords: []string{"buynow", "freemoney"}, Severity: moderation.SeverityMedium},
		},
	}

	flags, err := ka.Analyze(context.Background(), "get FREEMONEY today", moderation.ContentText)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal("spam", flags[0].Category)
	assert.Equal(moderation.SeverityMedium, flags[0].Severity)
	assert.Equal("freemoney", flags[0].Evidence)

	// a category contributes at most one flag
	flags, err = ka.Analyze(context.Background(), "buynow and freemoney", moderation.ContentText)
	require.NoError(t, err)
	assert.Len(flags, 1)

	// non-text content is skipped, not errored
	flags, err = ka.Analyze(context.Background(), "freemoney", moderation.ContentImage)
	require.NoError(t, err)
	assert.Empty(flags)
}

func TestKeywordAnalyzerStableOrder(t *testing.T) {
	assert := assert.New(t)
	ka := &KeywordAnalyzer{
		Categories: map[string]KeywordCategory{
			"spam":  {Keywords: []string{"buynow"}, Severity: moderation.SeverityLow},
			"abuse": {Keywords: []string{"moron"}, Severity: moderation.SeverityMedium},
			"hate":  {Keywords: []string{"slur"}, Severity: moderation.SeverityHigh},
		},
	}

	// flag order must not depend on map iteration order
	for i := 0; i < 20; i++ {
		flags, err := ka.Analyze(context.Background(), "buynow you moron slur", moderation.ContentText)
		require.NoError(t, err)
		require.Len(t, flags, 3)
		got := []string{flags[0].Category, flags[1].Category, flags[2].Category}
		assert.Equal([]string{"abuse", "hate", "spam"}, got)
	}
}

func TestEvaluateRules(t *testing.T) {
	assert := assert.New(t)
	logger := slog.Default()
	rules := []*moderation.Rule{
		{
			ID: "r-kw", Name: "keyword rule", Category: "hate",
			Severity: moderation.SeverityHigh, Enabled: true,
			Matcher: moderation.RuleMatcher{Keywords: []string{"slur"}},
		},
		{
			ID: "r-re", Name: "phone pattern", Category: "pii",
			Severity: moderation.SeverityMedium, Enabled: true,
			Matcher: moderation.RuleMatcher{Pattern: `\d{3}-\d{4}`},
		},
		{
			ID: "r-bad", Name: "broken pattern", Category: "misc",
			Severity: moderation.SeverityLow, Enabled: true,
			Matcher: moderation.RuleMatcher{Pattern: `([`},
		},
		{
			ID: "r-img", Name: "image only", Category: "nsfw",
			Severity: moderation.SeverityHigh, Enabled: true,
			Matcher: moderation.RuleMatcher{Keywords: []string{"gore"}, ContentTypes: []moderation.ContentType{moderation.ContentImage}},
		},
	}

	flags := EvaluateRules("that slur, call 555-1234", moderation.ContentText, rules, logger)
	require.Len(t, flags, 2)
	assert.Equal("hate", flags[0].Category)
	assert.Equal("slur", flags[0].Evidence)
	assert.Equal("pii", flags[1].Category)
	assert.Equal("555-1234", flags[1].Evidence)

	// content-type filter admits the image rule only for images
	assert.Empty(EvaluateRules("gore", moderation.ContentText, rules, logger))
	flags = EvaluateRules("gore", moderation.ContentImage, rules, logger)
	require.Len(t, flags, 1)
	assert.Equal("nsfw", flags[0].Category)

	assert.Empty(EvaluateRules("benign text", moderation.ContentText, rules, logger))
}

func TestMergeSeverityAndCategory(t *testing.T) {
	assert := assert.New(t)
	started := time.Now().UTC()
	flagSets := [][]moderation.Flag{
		{
			{Category: "spam", Severity: moderation.SeverityLow, Confidence: 0.5},
			{Category: "hate", Severity: moderation.SeverityHigh, Confidence: 0.9},
		},
		{
			{Category: "spam", Severity: moderation.SeverityMedium, Confidence: 0.6},
		},
	}

	a := Merge("c1", moderation.ContentText, flagSets, &WeightedScorer{}, started)
	assert.Equal("c1", a.ContentID)
	assert.Equal(moderation.SeverityHigh, a.Severity)
	assert.Equal("spam", a.Category)
	assert.Len(a.Flags, 3)
	assert.Equal(0.9, a.Confidence.Score)
	assert.Equal("high", a.Confidence.Label)
	assert.GreaterOrEqual(a.ProcessingTimeMS, int64(0))
	assert.Contains(a.Suggestions, "notify trust and safety")
	assert.Contains(a.Suggestions, "review spam policy for this content")
}

func TestMergeCategoryTieFirstSeen(t *testing.T) {
	assert := assert.New(t)
	flagSets := [][]moderation.Flag{{
		{Category: "hate", Severity: moderation.SeverityLow},
		{Category: "spam", Severity: moderation.SeverityLow},
		{Category: "spam", Severity: moderation.SeverityLow},
		{Category: "hate", Severity: moderation.SeverityLow},
	}}
	a := Merge("c1", moderation.ContentText, flagSets, &WeightedScorer{}, time.Now().UTC())
	assert.Equal("hate", a.Category)
}

func TestMergeNoFlags(t *testing.T) {
	assert := assert.New(t)
	a := Merge("c1", moderation.ContentText, nil, &WeightedScorer{}, time.Now().UTC())
	assert.Equal(moderation.SeverityLow, a.Severity)
	assert.Equal(moderation.ActionAllow, a.Action)
	assert.Zero(a.Score)
	assert.Empty(a.Category)
	assert.Empty(a.Suggestions)
}

func TestWeightedScorer(t *testing.T) {
	assert := assert.New(t)
	ws := &WeightedScorer{}

	assert.Zero(ws.Score(nil))

	// single critical flag at full confidence saturates the score
	assert.InDelta(1.0, ws.Score([]moderation.Flag{
		{Severity: moderation.SeverityCritical, Confidence: 1.0},
	}), 1e-9)

	// stacked weak signals approach but never reach 1
	weak := []moderation.Flag{
		{Severity: moderation.SeverityLow, Confidence: 0.5},
		{Severity: moderation.SeverityLow, Confidence: 0.5},
		{Severity: moderation.SeverityLow, Confidence: 0.5},
	}
	s := ws.Score(weak)
	assert.Greater(s, 0.3)
	assert.Less(s, 1.0)

	// action thresholds
	for _, tc := range []struct {
		score  float64
		action moderation.Action
	}{
		{0.95, moderation.ActionRemove},
		{0.8, moderation.ActionReview},
		{0.5, moderation.ActionFlag},
		{0.1, moderation.ActionAllow},
	} {
		a := &moderation.Analysis{Score: tc.score, Severity: moderation.SeverityMedium}
		assert.Equal(tc.action, ws.Action(a), "score %v", tc.score)
	}

	// critical severity forces remove regardless of score
	a := &moderation.Analysis{Score: 0.1, Severity: moderation.SeverityCritical}
	assert.Equal(moderation.ActionRemove, ws.Action(a))
}

func TestSafeAnalysis(t *testing.T) {
	assert := assert.New(t)
	a := SafeAnalysis("c1", moderation.ContentText, time.Now().UTC())
	assert.Equal(moderation.ActionAllow, a.Action)
	assert.Zero(a.Score)
	assert.Equal(moderation.SeverityLow, a.Severity)
	assert.Empty(a.Flags)
}
