// Package types provides type definitions for structured data used throughout the campaign briefing system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// CandidateArticle is one feed entry after extraction and normalization.
// ID is the canonical link and doubles as the dedup key.
type CandidateArticle struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Summary     string     `json:"summary"`
	PublishedAt *time.Time `json:"publishedAt"`
	Source      string     `json:"source"`
	FeedURL     string     `json:"feedUrl"`
	ImageURL    string     `json:"imageUrl,omitempty"`
}

// ISOMillis is the UTC timestamp layout with millisecond precision, e.g.
// 2024-05-01T14:30:00.000Z.
const ISOMillis = "2006-01-02T15:04:05.000Z07:00"

// PublishedISO returns the publish date in ISO-8601 form, or "" when unknown.
func (a CandidateArticle) PublishedISO() string {
	if a.PublishedAt == nil {
		return ""
	}
	return a.PublishedAt.UTC().Format(ISOMillis)
}

// ScoredArticle is a candidate with its relevance score for a topic
type ScoredArticle struct {
	CandidateArticle
	Score float64 `json:"score"`
}

// IssueArticle is an article chosen by the model for a key issue
type IssueArticle struct {
	Title       string  `json:"title" validate:"required"`
	Link        string  `json:"link" validate:"required,http_link"`
	Source      string  `json:"source" validate:"required"`
	Description *string `json:"description"`
	PublishedAt *string `json:"publishedAt"`
	ImageURL    *string `json:"imageUrl,omitempty" validate:"omitempty,http_link"`
}

// ArticleSearchResult is the structured output of the topic path
type ArticleSearchResult struct {
	Issue    string         `json:"issue" validate:"required,min=3,max=120"`
	Summary  string         `json:"summary" validate:"required,min=30"`
	Articles []IssueArticle `json:"articles" validate:"min=1,max=10,dive"`
}
