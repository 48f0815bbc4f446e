// Package main provides the campaign_agent CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "campaign_agent",
	Short: "Campaign briefing CLI and HTTP API server",
	Long: `campaign_agent builds briefings for a political campaign: news articles relevant to a key issue, chosen from a fixed set of RSS feeds, and chart-backed deep dives over the campaign's donation, volunteer and event metrics.

Configuration is read from --config (YAML or JSON), then CAMPAIGN_* environment variables, then command-line flags.`,
	SilenceUsage: true,
}

var (
	configPath string
	apiKey     string
	provider   string
	model      string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Model provider API key (defaults to OPENROUTER_API_KEY or GEMINI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "Model provider: openrouter or gemini")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Model id used for every tier")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed progress")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
