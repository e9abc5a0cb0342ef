package analysis

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/warden-mod/warden/moderation"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// TokenizeText splits free-form text into lower-cased tokens, stripping
// punctuation, for fast matching against keyword lists.
func TokenizeText(text string) []string {
	split := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	return strings.Fields(split)
}

// KeywordAnalyzer is the built-in text provider: it flags content containing
// any keyword from its per-category lists. Real deployments typically add an
// external ML provider alongside it.
type KeywordAnalyzer struct {
	// Categories maps a category name to its keyword set and severity.
	Categories map[string]KeywordCategory
}

type KeywordCategory struct {
	Keywords []string
	Severity moderation.Severity
}

func (k *KeywordAnalyzer) Name() string {
	return "keyword"
}

func (k *KeywordAnalyzer) Analyze(ctx context.Context, content string, ct moderation.ContentType) ([]moderation.Flag, error) {
	if ct != moderation.ContentText {
		return nil, nil
	}
	tokens := TokenizeText(content)
	tokenSet := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = true
	}
	// sorted category order keeps the first-seen tie-break downstream stable
	cats := make([]string, 0, len(k.Categories))
	for cat := range k.Categories {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var flags []moderation.Flag
	for _, cat := range cats {
		kc := k.Categories[cat]
		for _, kw := range kc.Keywords {
			if tokenSet[strings.ToLower(kw)] {
				flags = append(flags, moderation.Flag{
					ID:         uuid.NewString(),
					Type:       "keyword",
					Category:   cat,
					Severity:   kc.Severity,
					Message:    "keyword match: " + kw,
					Evidence:   kw,
					Confidence: 0.8,
				})
				break
			}
		}
	}
	return flags, nil
}
