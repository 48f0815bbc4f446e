package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/campaign-briefing/internal/campaign"
	"github.com/jonathan/campaign-briefing/internal/observability"
	"github.com/jonathan/campaign-briefing/internal/types"
)

var deepDiveCmd = &cobra.Command{
	Use:   "deep-dive",
	Short: "Generate insights and a chart from campaign metrics",
	Long:  "Reads an ExpandedMetrics JSON file (donations, volunteerCountsByMonth, events) and asks the model for insights in every category plus one chart focused on --category. Prints a DeepDiveResult JSON.",
	RunE:  runDeepDive,
}

var (
	deepDiveMetrics  string
	deepDiveCategory string
	deepDiveOutput   string
	deepDiveTimeout  time.Duration
)

func init() {
	deepDiveCmd.Flags().StringVarP(&deepDiveMetrics, "metrics", "m", "", "Path to ExpandedMetrics JSON file (required)")
	deepDiveCmd.Flags().StringVarP(&deepDiveCategory, "category", "c", "", "Chart focus: fundsRaised, donors, volunteers or events (required)")
	deepDiveCmd.Flags().StringVarP(&deepDiveOutput, "out", "o", "", "Path to output JSON file (defaults to stdout)")
	deepDiveCmd.Flags().DurationVar(&deepDiveTimeout, "timeout", 2*time.Minute, "Overall deadline for the deep dive")

	if err := deepDiveCmd.MarkFlagRequired("metrics"); err != nil {
		panic(fmt.Sprintf("failed to mark metrics flag as required: %v", err))
	}
	if err := deepDiveCmd.MarkFlagRequired("category"); err != nil {
		panic(fmt.Sprintf("failed to mark category flag as required: %v", err))
	}

	rootCmd.AddCommand(deepDiveCmd)
}

func loadMetrics(path string) (types.ExpandedMetrics, error) {
	var metrics types.ExpandedMetrics
	data, err := os.ReadFile(path)
	if err != nil {
		return metrics, fmt.Errorf("failed to read metrics file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &metrics); err != nil {
		return metrics, fmt.Errorf("failed to unmarshal metrics JSON: %w", err)
	}
	return metrics, nil
}

func runDeepDive(cmd *cobra.Command, _ []string) error {
	category, err := types.ParseCategory(deepDiveCategory)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	metrics, err := loadMetrics(deepDiveMetrics)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stderr)
	if cfg.Verbose {
		printer.PrintCampaignSummary(campaign.BuildSummary(metrics))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), deepDiveTimeout)
	defer cancel()

	p, client, err := newPipeline(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	result, err := p.DeepDive(ctx, metrics, category)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		printer.PrintDeepDive(result, category)
	}
	return writeJSON(deepDiveOutput, result)
}
