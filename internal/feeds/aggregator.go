// Package feeds pulls candidate articles from the syndication feed registry.
// Every feed is fetched concurrently; a failing feed contributes nothing and
// never aborts the others.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/campaign-briefing/internal/fetch"
	"github.com/jonathan/campaign-briefing/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultFeedTimeout bounds each feed request.
const DefaultFeedTimeout = 10 * time.Second

// AcceptHeader is sent with every feed request.
const AcceptHeader = "application/rss+xml, application/xml;q=0.9, text/xml;q=0.8"

// Fetcher retrieves a feed document.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Result, error)
}

// Options configures an Aggregator.
type Options struct {
	// Sources defaults to the embedded registry.
	Sources []Source
	// Fetcher defaults to a rate-limited fetch.Fetcher sending AcceptHeader.
	Fetcher Fetcher
	// Timeout applies to each feed independently.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Aggregator collects and deduplicates articles across feeds
type Aggregator struct {
	sources []Source
	fetcher Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

// SourceResult is the outcome for one feed of a collection run
type SourceResult struct {
	Source Source
	Items  int
	Err    error
}

// Report describes a collection run per feed, in registry order.
type Report struct {
	Sources    []SourceResult
	Duplicates int
}

// Failed returns the number of feeds that errored.
func (r Report) Failed() int {
	n := 0
	for _, s := range r.Sources {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// NewAggregator creates an Aggregator with defaults filled in.
func NewAggregator(opts Options) *Aggregator {
	if len(opts.Sources) == 0 {
		opts.Sources = DefaultSources()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFeedTimeout
	}
	if opts.Fetcher == nil {
		fetchOpts := fetch.DefaultOptions()
		fetchOpts.Timeout = opts.Timeout
		fetchOpts.Headers = map[string]string{"Accept": AcceptHeader}
		opts.Fetcher = fetch.NewFetcher(fetchOpts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Aggregator{
		sources: opts.Sources,
		fetcher: opts.Fetcher,
		timeout: opts.Timeout,
		logger:  opts.Logger.With("component", "feeds"),
	}
}

// Sources returns the feeds this aggregator polls.
func (a *Aggregator) Sources() []Source {
	out := make([]Source, len(a.sources))
	copy(out, a.sources)
	return out
}

// Collect fetches every feed and returns the merged, deduplicated articles.
// Order is first-seen across feeds in registry order. An empty result is
// reported as *NoCandidatesError.
func (a *Aggregator) Collect(ctx context.Context) ([]types.CandidateArticle, error) {
	articles, _, err := a.CollectWithReport(ctx)
	return articles, err
}

// CollectWithReport is Collect plus per-feed outcomes.
func (a *Aggregator) CollectWithReport(ctx context.Context) ([]types.CandidateArticle, Report, error) {
	perSource := make([][]types.CandidateArticle, len(a.sources))
	report := Report{Sources: make([]SourceResult, len(a.sources))}

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			items, err := a.collectOne(ctx, src)
			if err != nil {
				a.logger.Warn("feed failed", "feed", src.Name, "url", src.URL, "error", err)
			}
			// Each goroutine owns index i.
			perSource[i] = items
			report.Sources[i] = SourceResult{Source: src, Items: len(items), Err: err}
			return nil
		})
	}
	_ = g.Wait()

	merged, duplicates := mergeUnique(perSource)
	report.Duplicates = duplicates

	a.logger.Info("feeds collected",
		"sources", len(a.sources),
		"failed", report.Failed(),
		"articles", len(merged),
		"duplicates", duplicates,
	)

	if len(merged) == 0 {
		return nil, report, &NoCandidatesError{Sources: len(a.sources), Failed: report.Failed()}
	}
	return merged, report, nil
}

func (a *Aggregator) collectOne(ctx context.Context, src Source) ([]types.CandidateArticle, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.fetcher.Get(ctx, src.URL)
	if err != nil {
		var fetchErr *fetch.Error
		if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
			return nil, &SourceError{Source: src.Name, URL: src.URL, Message: fmt.Sprintf("feed responded with %d", fetchErr.StatusCode), Cause: err}
		}
		return nil, &SourceError{Source: src.Name, URL: src.URL, Message: "fetch failed", Cause: err}
	}

	items := ParseFeed(src, result.Body)
	if len(items) == 0 {
		a.logger.Debug("feed had no usable items", "feed", src.Name, "url", src.URL)
	}
	return items, nil
}

// mergeUnique concatenates per-source lists, keeping the first article per ID.
func mergeUnique(perSource [][]types.CandidateArticle) ([]types.CandidateArticle, int) {
	seen := make(map[string]bool)
	var merged []types.CandidateArticle
	duplicates := 0
	for _, items := range perSource {
		for _, article := range items {
			if seen[article.ID] {
				duplicates++
				continue
			}
			seen[article.ID] = true
			merged = append(merged, article)
		}
	}
	return merged, duplicates
}
