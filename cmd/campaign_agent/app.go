package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/campaign-briefing/internal/config"
	"github.com/jonathan/campaign-briefing/internal/feeds"
	"github.com/jonathan/campaign-briefing/internal/fetch"
	"github.com/jonathan/campaign-briefing/internal/generation"
	"github.com/jonathan/campaign-briefing/internal/llm"
	"github.com/jonathan/campaign-briefing/internal/pipeline"
)

// loadConfig reads the config file and environment, then applies flags that
// were set explicitly on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loaded, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		loaded.LLM.Provider = provider
		// The key read by Load belongs to the previous provider.
		if !flags.Changed("api-key") {
			loaded.LLM.APIKey = providerEnvKey(provider)
		}
	}
	if flags.Changed("api-key") {
		loaded.LLM.APIKey = apiKey
	}
	if flags.Changed("model") {
		loaded.LLM.Model = model
	}
	if flags.Changed("verbose") {
		loaded.Verbose = verbose
	}

	cfg := loaded.MergeWithDefaults(*config.Default())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func providerEnvKey(p string) string {
	if llm.Provider(p) == llm.ProviderGemini {
		return os.Getenv("GEMINI_API_KEY")
	}
	return os.Getenv("OPENROUTER_API_KEY")
}

// newLogger builds the process logger from the logging config. Verbose
// lowers the level to debug.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logging.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// newAggregator polls the built-in feed registry with the configured fetch settings.
func newAggregator(cfg *config.Config, logger *slog.Logger) *feeds.Aggregator {
	opts := cfg.FetchOptions()
	opts.Headers = map[string]string{"Accept": feeds.AcceptHeader}
	return feeds.NewAggregator(feeds.Options{
		Fetcher: fetch.NewFetcher(opts),
		Timeout: cfg.Feeds.Timeout,
		Logger:  logger,
	})
}

// newPipeline wires the model client, feed aggregator and pipeline. The
// returned llm.Client must be closed by the caller.
func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, onProgress pipeline.ProgressCallback) (*pipeline.Pipeline, llm.Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, nil, err
	}

	client, err := llm.NewClient(ctx, cfg.LLMClientConfig(), cfg.LLM.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	generator := generation.NewClient(client, &generation.Options{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.RetryDelay(),
		Logger:      logger,
	})

	p, err := pipeline.New(pipeline.Options{
		Collector:     newAggregator(cfg, logger),
		Generator:     generator,
		ShortlistSize: cfg.Ranking.ShortlistSize,
		Logger:        logger,
		OnProgress:    onProgress,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return p, client, nil
}

// writeJSON writes v as indented JSON to path, or to stdout when path is empty.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	// Ensure output directory exists
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}
