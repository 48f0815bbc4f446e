package ranking

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/campaign-briefing/internal/types"
)

// Default scoring constants. These are empirical tuning values; keep them
// unless behavior is deliberately being changed.
const (
	DefaultTitleMatch     = 5.0
	DefaultTextMatch      = 2.0
	DefaultBaseline       = 0.5
	DefaultRecencyDays    = 6.0
	DefaultRecencyPerDay  = 0.3
	DefaultShortlistLimit = 18
)

// Weights are the scoring constants used by a Ranker
type Weights struct {
	// TitleMatch is added per keyword found in the title.
	TitleMatch float64
	// TextMatch is added per keyword found in title+summary.
	TextMatch float64
	// Baseline replaces a zero keyword score.
	Baseline float64
	// RecencyDays is the age at which the recency bonus reaches zero.
	RecencyDays float64
	// RecencyPerDay scales the remaining days into a bonus.
	RecencyPerDay float64
}

// DefaultWeights returns the standard scoring constants.
func DefaultWeights() Weights {
	return Weights{
		TitleMatch:    DefaultTitleMatch,
		TextMatch:     DefaultTextMatch,
		Baseline:      DefaultBaseline,
		RecencyDays:   DefaultRecencyDays,
		RecencyPerDay: DefaultRecencyPerDay,
	}
}

var keywordSeparators = regexp.MustCompile(`[\s,/]+`)

// Tokenize splits a topic into lowercase keywords on whitespace, commas and slashes.
func Tokenize(topic string) []string {
	parts := keywordSeparators.Split(strings.ToLower(topic), -1)
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

// keywordScore sums title and text matches, falling back to the baseline
// when nothing matched.
func (w Weights) keywordScore(keywords []string, article types.CandidateArticle) float64 {
	title := strings.ToLower(article.Title)
	text := title + " " + strings.ToLower(article.Summary)

	score := 0.0
	for _, keyword := range keywords {
		if strings.Contains(title, keyword) {
			score += w.TitleMatch
		}
		if strings.Contains(text, keyword) {
			score += w.TextMatch
		}
	}
	if score == 0 {
		return w.Baseline
	}
	return score
}

// recencyBonus decays linearly to zero at RecencyDays. Future dates count as
// age zero and undated articles get nothing.
func (w Weights) recencyBonus(publishedAt *time.Time, now time.Time) float64 {
	if publishedAt == nil {
		return 0
	}
	ageDays := math.Max(0, now.Sub(*publishedAt).Hours()/24)
	return math.Max(0, w.RecencyDays-ageDays) * w.RecencyPerDay
}
