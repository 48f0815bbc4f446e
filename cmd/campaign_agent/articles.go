package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/campaign-briefing/internal/feeds"
	"github.com/jonathan/campaign-briefing/internal/observability"
	"github.com/jonathan/campaign-briefing/internal/pipeline"
	"github.com/jonathan/campaign-briefing/internal/types"
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Find recent news articles for a key issue",
	Long:  "Collects the configured RSS feeds, ranks every article against the issue, and asks the model to pick up to ten and summarize them. Prints an ArticleSearchResult JSON.",
	RunE:  runArticles,
}

var (
	articlesIssue   string
	articlesOutput  string
	articlesTimeout time.Duration
)

func init() {
	articlesCmd.Flags().StringVarP(&articlesIssue, "issue", "i", "", "Key issue to brief on (required)")
	articlesCmd.Flags().StringVarP(&articlesOutput, "out", "o", "", "Path to output JSON file (defaults to stdout)")
	articlesCmd.Flags().DurationVar(&articlesTimeout, "timeout", 2*time.Minute, "Overall deadline for the briefing")

	if err := articlesCmd.MarkFlagRequired("issue"); err != nil {
		panic(fmt.Sprintf("failed to mark issue flag as required: %v", err))
	}

	rootCmd.AddCommand(articlesCmd)
}

func runArticles(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	var onProgress pipeline.ProgressCallback
	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stderr)
		onProgress = func(event pipeline.ProgressEvent) {
			switch content := event.Content.(type) {
			case feeds.Report:
				printer.PrintFeedReport(content)
			case []types.ScoredArticle:
				printer.PrintShortlist(content)
			case *types.ArticleSearchResult:
				printer.PrintArticleResult(content)
			}
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), articlesTimeout)
	defer cancel()

	p, client, err := newPipeline(ctx, cfg, logger, onProgress)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	result, err := p.TopicBriefing(ctx, articlesIssue)
	if err != nil {
		return err
	}
	return writeJSON(articlesOutput, result)
}
