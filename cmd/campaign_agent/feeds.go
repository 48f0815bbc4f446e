package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/campaign-briefing/internal/observability"
	"github.com/jonathan/campaign-briefing/internal/ranking"
)

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Collect the feed registry and optionally rank it for a topic",
	Long:  "Fetches every feed in the registry and prints a per-feed report. With --topic, also prints the ranked shortlist the model would receive. Does not call a model.",
	RunE:  runFeeds,
}

var (
	feedsTopic   string
	feedsLimit   int
	feedsOutput  string
	feedsTimeout time.Duration
)

func init() {
	feedsCmd.Flags().StringVarP(&feedsTopic, "topic", "t", "", "Rank collected articles against this topic")
	feedsCmd.Flags().IntVarP(&feedsLimit, "limit", "n", 0, "Shortlist size (defaults to ranking.shortlist_size)")
	feedsCmd.Flags().StringVarP(&feedsOutput, "out", "o", "", "Write the candidates (or the shortlist with --topic) as JSON to this file")
	feedsCmd.Flags().DurationVar(&feedsTimeout, "timeout", time.Minute, "Overall deadline for collection")

	rootCmd.AddCommand(feedsCmd)
}

func runFeeds(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	ctx, cancel := context.WithTimeout(cmd.Context(), feedsTimeout)
	defer cancel()

	candidates, report, err := newAggregator(cfg, logger).CollectWithReport(ctx)
	printer := observability.NewPrinter(os.Stdout)
	printer.PrintFeedReport(report)
	if err != nil {
		return err
	}

	if feedsTopic == "" {
		if feedsOutput != "" {
			return writeJSON(feedsOutput, candidates)
		}
		return nil
	}

	limit := feedsLimit
	if limit <= 0 {
		limit = cfg.Ranking.ShortlistSize
	}
	shortlist := ranking.NewRanker().Shortlist(feedsTopic, candidates, limit)
	printer.PrintShortlist(shortlist)

	if feedsOutput != "" {
		return writeJSON(feedsOutput, shortlist)
	}
	return nil
}
