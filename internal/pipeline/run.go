// Package pipeline wires feed collection, ranking and structured generation
// into the two briefing paths: articles for a key issue and a metrics deep dive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/campaign-briefing/internal/feeds"
	"github.com/jonathan/campaign-briefing/internal/ranking"
	"github.com/jonathan/campaign-briefing/internal/types"
)

// Step names reported through ProgressEvent
const (
	StepCollect     = "collect_feeds"
	StepRank        = "rank_articles"
	StepSelect      = "select_articles"
	StepDeepDive    = "deep_dive"
	CategoryTopic   = "topic"
	CategoryMetrics = "metrics"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Collector gathers candidate articles from the feed registry
type Collector interface {
	CollectWithReport(ctx context.Context) ([]types.CandidateArticle, feeds.Report, error)
}

// Generator produces validated structured output
type Generator interface {
	SelectArticles(ctx context.Context, issue string, shortlist []types.ScoredArticle) (*types.ArticleSearchResult, error)
	DeepDive(ctx context.Context, metrics types.ExpandedMetrics, category types.Category) (*types.DeepDiveResult, error)
}

// Options holds the collaborators of a Pipeline
type Options struct {
	Collector     Collector
	Generator     Generator
	Ranker        *ranking.Ranker
	ShortlistSize int
	Logger        *slog.Logger
	OnProgress    ProgressCallback
}

// Pipeline runs briefing requests. It holds no per-request state.
type Pipeline struct {
	collector     Collector
	generator     Generator
	ranker        *ranking.Ranker
	shortlistSize int
	logger        *slog.Logger
	onProgress    ProgressCallback
}

// New validates the options and builds a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Generator == nil {
		return nil, errors.New("pipeline: generator is required")
	}
	ranker := opts.Ranker
	if ranker == nil {
		ranker = ranking.NewRanker()
	}
	size := opts.ShortlistSize
	if size <= 0 {
		size = ranking.DefaultShortlistLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		collector:     opts.Collector,
		generator:     opts.Generator,
		ranker:        ranker,
		shortlistSize: size,
		logger:        logger.With("component", "pipeline"),
		onProgress:    opts.OnProgress,
	}, nil
}

// emitter fans an event out to the pipeline callback and a per-call one.
type emitter []ProgressCallback

func (e emitter) emit(step, category, message string, content any) {
	for _, cb := range e {
		if cb != nil {
			cb(ProgressEvent{Step: step, Category: category, Message: message, Content: content})
		}
	}
}

// TopicBriefing collects feed articles, shortlists the most relevant ones for
// the issue and asks the generator to pick and summarize them.
func (p *Pipeline) TopicBriefing(ctx context.Context, issue string) (*types.ArticleSearchResult, error) {
	return p.topicBriefing(ctx, issue, emitter{p.onProgress})
}

// TopicBriefingWithProgress is TopicBriefing with an extra progress callback for this call.
func (p *Pipeline) TopicBriefingWithProgress(ctx context.Context, issue string, onProgress ProgressCallback) (*types.ArticleSearchResult, error) {
	return p.topicBriefing(ctx, issue, emitter{p.onProgress, onProgress})
}

func (p *Pipeline) topicBriefing(ctx context.Context, issue string, progress emitter) (*types.ArticleSearchResult, error) {
	issue = strings.TrimSpace(issue)
	if issue == "" {
		return nil, &InputError{Field: "issue", Message: "must not be empty"}
	}
	if p.collector == nil {
		return nil, errors.New("pipeline: no feed collector configured")
	}

	candidates, report, err := p.collector.CollectWithReport(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Info("feeds collected", "issue", issue, "candidates", len(candidates), "failed_feeds", report.Failed(), "duplicates", report.Duplicates)
	progress.emit(StepCollect, CategoryTopic, fmt.Sprintf("Collected %d candidate articles from %d feeds", len(candidates), len(report.Sources)), report)

	shortlist := p.ranker.Shortlist(issue, candidates, p.shortlistSize)
	progress.emit(StepRank, CategoryTopic, fmt.Sprintf("Shortlisted %d articles for %q", len(shortlist), issue), shortlist)

	result, err := p.generator.SelectArticles(ctx, issue, shortlist)
	if err != nil {
		return nil, fmt.Errorf("article selection for %q: %w", issue, err)
	}
	progress.emit(StepSelect, CategoryTopic, fmt.Sprintf("Selected %d articles", len(result.Articles)), result)
	return result, nil
}

// DeepDive produces insights for every category and one chart focused on category.
func (p *Pipeline) DeepDive(ctx context.Context, metrics types.ExpandedMetrics, category types.Category) (*types.DeepDiveResult, error) {
	if _, err := types.ParseCategory(string(category)); err != nil {
		return nil, &InputError{Field: "category", Message: err.Error()}
	}

	result, err := p.generator.DeepDive(ctx, metrics, category)
	if err != nil {
		return nil, fmt.Errorf("deep dive for %s: %w", category, err)
	}
	p.logger.Info("deep dive generated", "category", string(category), "chart_kind", string(result.Chart.ChartKind()))
	emitter{p.onProgress}.emit(StepDeepDive, CategoryMetrics, fmt.Sprintf("Generated %s chart for %s", result.Chart.ChartKind(), category), result)
	return result, nil
}
