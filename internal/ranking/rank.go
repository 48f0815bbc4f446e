// Package ranking scores candidate articles against a topic by keyword overlap
// and recency, producing a deterministic ordered shortlist.
package ranking

import (
	"sort"
	"time"

	"github.com/jonathan/campaign-briefing/internal/types"
)

// Ranker scores candidates. The zero value is not usable; call NewRanker.
type Ranker struct {
	Weights Weights
	// Now supplies the reference time for recency.
	Now func() time.Time
}

// NewRanker creates a Ranker with the default weights and the wall clock.
func NewRanker() *Ranker {
	return &Ranker{Weights: DefaultWeights(), Now: time.Now}
}

// Rank scores every candidate against topic and returns them sorted by score,
// highest first. Ties keep their input order. The input slice is not modified.
func (r *Ranker) Rank(topic string, candidates []types.CandidateArticle) []types.ScoredArticle {
	keywords := Tokenize(topic)
	now := r.now()

	scored := make([]types.ScoredArticle, 0, len(candidates))
	for _, article := range candidates {
		score := r.Weights.keywordScore(keywords, article) + r.Weights.recencyBonus(article.PublishedAt, now)
		scored = append(scored, types.ScoredArticle{CandidateArticle: article, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Shortlist ranks candidates and keeps the top limit (DefaultShortlistLimit when limit <= 0).
func (r *Ranker) Shortlist(topic string, candidates []types.CandidateArticle, limit int) []types.ScoredArticle {
	if limit <= 0 {
		limit = DefaultShortlistLimit
	}
	scored := r.Rank(topic, candidates)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func (r *Ranker) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
